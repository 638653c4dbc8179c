// Package attr holds the slog attribute helpers used across modules so log
// keys stay consistent.
package attr

import (
	"context"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/ctf-engine/app/shared/correlation"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

func String(key, value string) slog.Attr { return slog.String(key, value) }

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

func Int64(key string, value int64) slog.Attr { return slog.Int64(key, value) }

func Float64(key string, value float64) slog.Attr { return slog.Float64(key, value) }

func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }

func Any(key string, value any) slog.Attr { return slog.Any(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

func Time(key string, value time.Time) slog.Attr { return slog.Time(key, value) }

// Error renders err under the "error" key.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

func TickID(key string, id sharedtypes.TickID) slog.Attr { return slog.Int64(key, int64(id)) }

func TeamID(key string, id sharedtypes.TeamID) slog.Attr { return slog.Int64(key, int64(id)) }

func ServiceID(key string, id sharedtypes.ServiceID) slog.Attr {
	return slog.Int64(key, int64(id))
}

func FlagID(key string, id sharedtypes.FlagID) slog.Attr { return slog.Int64(key, int64(id)) }

func EventID(key string, id sharedtypes.EventID) slog.Attr { return slog.Int64(key, int64(id)) }

// ExtractCorrelationID pulls the correlation id out of ctx.
func ExtractCorrelationID(ctx context.Context) slog.Attr {
	return slog.String("correlation_id", correlation.ID(ctx))
}
