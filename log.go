package symdiff

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

type loggerHolder struct{ logrus.FieldLogger }

var pkgLogger atomic.Value

func init() { pkgLogger.Store(loggerHolder{logrus.StandardLogger()}) }

// SetLogger replaces the logger used by the package. A nil logger restores
// the standard logrus logger.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	pkgLogger.Store(loggerHolder{l})
}

// Logger returns the logger used by the package.
func Logger() logrus.FieldLogger { return pkgLogger.Load().(loggerHolder).FieldLogger }
