package js

import (
	"strings"

	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"
)

// console represents a JS console implemented as a logrus.FieldLogger.
type console struct {
	logger logrus.FieldLogger
}

func newConsole(vm *goja.Runtime, logger logrus.FieldLogger) (*goja.Object, error) {
	c := console{logger: logger.WithField("source", "console")}
	obj := vm.NewObject()
	methods := map[string]logrus.Level{
		"log":   logrus.InfoLevel,
		"info":  logrus.InfoLevel,
		"debug": logrus.DebugLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
	}
	for name, level := range methods {
		level := level
		err := obj.Set(name, func(call goja.FunctionCall) goja.Value {
			c.log(level, call.Arguments...)
			return goja.Undefined()
		})
		if err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func (c console) log(level logrus.Level, args ...goja.Value) {
	var msg strings.Builder
	for i, arg := range args {
		if i > 0 {
			msg.WriteString(" ")
		}
		msg.WriteString(valueString(arg))
	}

	switch level { //nolint:exhaustive
	case logrus.DebugLevel:
		c.logger.Debug(msg.String())
	case logrus.WarnLevel:
		c.logger.Warn(msg.String())
	case logrus.ErrorLevel:
		c.logger.Error(msg.String())
	default:
		c.logger.Info(msg.String())
	}
}

func valueString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	return v.String()
}
