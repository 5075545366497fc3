// Command symdiff evaluates, differentiates and minimizes problem documents.
//
// Usage:
//
//	symdiff eval     problem.yaml [--at x=1,y=2]
//	symdiff gradient problem.yaml [--at x=1,y=2]
//	symdiff hessian  problem.yaml [--at x=1,y=2]
//	symdiff check    problem.yaml [--at x=1,y=2]
//	symdiff minimize problem.yaml [--method bfgs]
//	symdiff print    problem.yaml [--wrt x,y] [--latex]
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
