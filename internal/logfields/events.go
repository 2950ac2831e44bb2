package logfields

import "go.uber.org/zap"

func Event(val string) zap.Field {
	return zap.String("event", val)
}

func PassID(val string) zap.Field {
	return zap.String("pass_id", val)
}
