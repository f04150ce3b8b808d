package logger

import (
	"time"

	"go.uber.org/zap"
)

// Standard field constructors so field names stay consistent across the
// codebase.

// HTTP

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func DurationMs(v int64) zap.Field       { return zap.Int64("duration_ms", v) }

// Domain

func SessionID(v string) zap.Field { return zap.String("session_id", v) }
func UserID(v string) zap.Field    { return zap.String("user_id", v) }
func TenantID(v string) zap.Field  { return zap.String("tenant_id", v) }
func Role(v string) zap.Field      { return zap.String("role", v) }
func PatientID(v string) zap.Field { return zap.String("patient_id", v) }

// System

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }

// Generic

func Count(v int) zap.Field             { return zap.Int("count", v) }
func Key(v string) zap.Field            { return zap.String("key", v) }
func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Any(key string, v any) zap.Field   { return zap.Any(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
