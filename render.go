package symdiff

import "strings"

// ============================================================
// Rendering
// ============================================================

// Precedence levels, lowest first.
const (
	precSum = iota + 1
	precProduct
	precPower
	precAtom
)

// LaTeX renders f as a LaTeX math expression.
func LaTeX(f Function) string { return format(f, true) }

func format(f Function, latex bool) string {
	var b strings.Builder
	write(&b, f, latex)
	return b.String()
}

func precedence(f Function) int {
	switch f := f.(type) {
	case *Constant:
		if f.value < 0 {
			return precProduct
		}
		return precAtom
	case *sum:
		return precSum
	case *binary:
		switch f.op {
		case opAdd, opSub:
			return precSum
		case opMul, opDiv:
			return precProduct
		case opAtan2:
			return precAtom
		}
		return precPower
	case *unary:
		switch f.op {
		case opNeg, opScale, opRecip:
			return precProduct
		case opSqr, opPowConst, opConstPow:
			return precPower
		}
	}
	return precAtom
}

// operand writes f, parenthesised when its precedence is below level.
func operand(b *strings.Builder, f Function, level int, latex bool) {
	if precedence(f) >= level {
		write(b, f, latex)
		return
	}
	if latex {
		b.WriteString(`\left(`)
		write(b, f, latex)
		b.WriteString(`\right)`)
		return
	}
	b.WriteByte('(')
	write(b, f, latex)
	b.WriteByte(')')
}

// operandAfter writes an operand that follows an operator. An operand that
// prints with a leading minus is parenthesised, giving x*(-y) and not x*-y.
func operandAfter(b *strings.Builder, f Function, level int, latex bool) {
	var t strings.Builder
	operand(&t, f, level, latex)
	s := t.String()
	if !strings.HasPrefix(s, "-") {
		b.WriteString(s)
		return
	}
	if latex {
		b.WriteString(`\left(` + s + `\right)`)
		return
	}
	b.WriteString("(" + s + ")")
}

// call writes name(arg).
func call(b *strings.Builder, name string, arg Function, latex bool) {
	b.WriteString(name)
	if latex {
		b.WriteString(`\left(`)
		write(b, arg, latex)
		b.WriteString(`\right)`)
		return
	}
	b.WriteByte('(')
	write(b, arg, latex)
	b.WriteByte(')')
}

func write(b *strings.Builder, f Function, latex bool) {
	times := "*"
	if latex {
		times = ` \cdot `
	}
	switch f := f.(type) {
	case *Constant:
		b.WriteString(formatFloat(f.value))
	case *Variable:
		b.WriteString(f.String())
	case *sum:
		for i, t := range f.terms {
			if i > 0 {
				b.WriteString(" + ")
				operandAfter(b, t, precSum, latex)
				continue
			}
			operand(b, t, precSum, latex)
		}
	case *binary:
		writeBinary(b, f, latex, times)
	case *unary:
		writeUnary(b, f, latex, times)
	case interface{ describe() string }:
		b.WriteString(f.describe())
	default:
		b.WriteString("?")
	}
}

func writeBinary(b *strings.Builder, f *binary, latex bool, times string) {
	switch f.op {
	case opAdd:
		operand(b, f.f, precSum, latex)
		b.WriteString(" + ")
		operandAfter(b, f.g, precSum, latex)
	case opSub:
		operand(b, f.f, precSum, latex)
		b.WriteString(" - ")
		operandAfter(b, f.g, precProduct, latex)
	case opMul:
		operand(b, f.f, precProduct, latex)
		b.WriteString(times)
		operandAfter(b, f.g, precProduct, latex)
	case opDiv:
		if latex {
			b.WriteString(`\frac{`)
			write(b, f.f, latex)
			b.WriteString("}{")
			write(b, f.g, latex)
			b.WriteString("}")
			return
		}
		operand(b, f.f, precProduct, latex)
		b.WriteString(" / ")
		operandAfter(b, f.g, precPower, latex)
	case opPow:
		writePower(b, f.f, f.g, latex)
	case opAtan2:
		lp, rp := "atan2(", ")"
		if latex {
			lp, rp = `\operatorname{atan2}\left(`, `\right)`
		}
		b.WriteString(lp)
		write(b, f.f, latex)
		b.WriteString(", ")
		write(b, f.g, latex)
		b.WriteString(rp)
	}
}

func writePower(b *strings.Builder, base, exp Function, latex bool) {
	if latex {
		b.WriteString("{")
		operand(b, base, precAtom, latex)
		b.WriteString("}^{")
		write(b, exp, latex)
		b.WriteString("}")
		return
	}
	operand(b, base, precAtom, latex)
	b.WriteString("^")
	operand(b, exp, precAtom, latex)
}

func writeUnary(b *strings.Builder, f *unary, latex bool, times string) {
	switch f.op {
	case opNeg:
		b.WriteString("-")
		operandAfter(b, f.arg, precPower, latex)
	case opScale:
		operand(b, Const(f.param), precProduct, latex)
		b.WriteString(times)
		operandAfter(b, f.arg, precProduct, latex)
	case opRecip:
		if latex {
			b.WriteString(`\frac{` + formatFloat(f.param) + "}{")
			write(b, f.arg, latex)
			b.WriteString("}")
			return
		}
		operand(b, Const(f.param), precProduct, latex)
		b.WriteString(" / ")
		operandAfter(b, f.arg, precPower, latex)
	case opSqr:
		writePower(b, f.arg, Const(2), latex)
	case opPowConst:
		writePower(b, f.arg, Const(f.param), latex)
	case opConstPow:
		writePower(b, Const(f.param), f.arg, latex)
	case opSqrt:
		if latex {
			b.WriteString(`\sqrt{`)
			write(b, f.arg, latex)
			b.WriteString("}")
			return
		}
		call(b, "sqrt", f.arg, latex)
	case opAbs:
		if latex {
			b.WriteString(`\left|`)
			write(b, f.arg, latex)
			b.WriteString(`\right|`)
			return
		}
		call(b, "abs", f.arg, latex)
	default:
		call(b, functionName(f.op, latex), f.arg, latex)
	}
}

func functionName(op unaryOp, latex bool) string {
	if !latex {
		switch op {
		case opStepDerivative:
			return "step'"
		case opAbsDerivative:
			return "sign"
		case opPositive:
			return "pos"
		}
		return op.String()
	}
	switch op {
	case opExp:
		return `\exp`
	case opLog:
		return `\ln`
	case opSin:
		return `\sin`
	case opCos:
		return `\cos`
	case opPositive:
		return `\operatorname{pos}`
	case opStep:
		return `\theta`
	case opStepDerivative:
		return `\delta`
	case opAbsDerivative:
		return `\operatorname{sign}`
	}
	return `\operatorname{` + op.String() + "}"
}
