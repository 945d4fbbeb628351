package logger

import (
	"time"

	"go.uber.org/zap"
)

// HTTP fields.

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }

func Bytes(v int) zap.Field { return zap.Int("bytes", v) }

// Domain fields.

// IdentityID tags the local identity (tenant) owning the request.
func IdentityID(v string) zap.Field { return zap.String("identity_id", v) }

// Platform tags the social platform a call is directed at.
func Platform(v string) zap.Field { return zap.String("platform", v) }

// AccountID tags the provider-side account id.
func AccountID(v string) zap.Field { return zap.String("account_id", v) }

// ScheduleID tags a scheduled publish intent.
func ScheduleID(v string) zap.Field { return zap.String("schedule_id", v) }

// System fields.

func Component(v string) zap.Field { return zap.String("component", v) }

func Layer(v string) zap.Field { return zap.String("layer", v) }

func Op(v string) zap.Field { return zap.String("op", v) }

func Err(err error) zap.Field { return zap.Error(err) }

// Generic fields.

func Count(v int) zap.Field { return zap.Int("count", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func String(key, v string) zap.Field { return zap.String(key, v) }

func Int(key string, v int) zap.Field { return zap.Int(key, v) }

func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }

func Any(key string, v any) zap.Field { return zap.Any(key, v) }
