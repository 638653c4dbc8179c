// Package leaderboard mirrors the aggregate standings into a Redis sorted set.
package leaderboard

import (
	"context"
	"fmt"
	"strconv"

	scoredb "github.com/Black-And-White-Club/ctf-engine/app/modules/score/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/redis/go-redis/v9"
)

// Key is the sorted set of team ids. Scores are stored negated so an
// ascending ZRANGE yields highest totals first, and members are zero padded
// so ties come back in ascending team id order.
const (
	Key          = "ctf:leaderboard"
	namesKey     = "ctf:leaderboard:names"
	memberFormat = "%019d"
)

// Redis implements the score service's Leaderboard on go-redis.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func member(id sharedtypes.TeamID) string {
	return fmt.Sprintf(memberFormat, int64(id))
}

// Publish replaces the stored standings atomically.
func (l *Redis) Publish(ctx context.Context, standings []scoredb.Standing) error {
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, Key, namesKey)
		if len(standings) == 0 {
			return nil
		}
		members := make([]redis.Z, 0, len(standings))
		names := make(map[string]any, len(standings))
		for _, s := range standings {
			m := member(s.TeamID)
			members = append(members, redis.Z{Score: -s.Score, Member: m})
			names[m] = s.Team
		}
		pipe.ZAdd(ctx, Key, members...)
		pipe.HSet(ctx, namesKey, names)
		return nil
	})
	if err != nil {
		return fmt.Errorf("leaderboard.Publish: %w", err)
	}
	return nil
}

// Top returns the first n standings. An empty board returns no rows.
func (l *Redis) Top(ctx context.Context, n int) ([]scoredb.Standing, error) {
	zs, err := l.client.ZRangeWithScores(ctx, Key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard.Top: %w", err)
	}
	if len(zs) == 0 {
		return []scoredb.Standing{}, nil
	}

	fields := make([]string, len(zs))
	for i, z := range zs {
		fields[i] = z.Member.(string)
	}
	names, err := l.client.HMGet(ctx, namesKey, fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard.Top: %w", err)
	}

	out := make([]scoredb.Standing, len(zs))
	for i, z := range zs {
		id, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("leaderboard.Top: bad member %q: %w", fields[i], err)
		}
		name, _ := names[i].(string)
		score := -z.Score
		if score == 0 {
			score = 0 // no negative zero in JSON
		}
		out[i] = scoredb.Standing{
			Pos:    i + 1,
			TeamID: sharedtypes.TeamID(id),
			Team:   name,
			Score:  score,
		}
	}
	return out, nil
}
