package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"beomusic_backend/internal/model"
)

// KeyPrefix is the Redis key prefix for browse sessions.
const KeyPrefix = "comment_session:"

// Each transition script replies {status} or {"ok", HGETALL}.
const (
	statusOK        = "ok"
	statusMissing   = "missing"
	statusLoading   = "loading"
	statusFailed    = "failed"
	statusExhausted = "exhausted"
	statusGone      = "gone"
)

// KEYS[1] session key. ARGV: now, ttl ms.
var beginScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {'missing'} end
local state = redis.call('HGET', KEYS[1], 'state')
if state == 'loading' then return {'loading'} end
if state == 'failed' then return {'failed'} end
if state == 'loaded' and redis.call('HGET', KEYS[1], 'has_more') ~= '1' then return {'exhausted'} end
redis.call('HINCRBY', KEYS[1], 'generation', 1)
redis.call('HSET', KEYS[1], 'state', 'loading', 'last_error', '', 'updated_at', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return {'ok', redis.call('HGETALL', KEYS[1])}
`)

// KEYS[1] session key. ARGV: generation, now, ttl ms, then field/value pairs to set.
var finishScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {'gone'} end
if redis.call('HGET', KEYS[1], 'generation') ~= ARGV[1] then return {'gone'} end
if redis.call('HGET', KEYS[1], 'state') ~= 'loading' then return {'gone'} end
for i = 4, #ARGV, 2 do
	redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
redis.call('HSET', KEYS[1], 'updated_at', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return {'ok', redis.call('HGETALL', KEYS[1])}
`)

// KEYS[1] session key. ARGV: now, ttl ms.
var resetScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {'missing'} end
redis.call('HINCRBY', KEYS[1], 'generation', 1)
redis.call('HSET', KEYS[1], 'state', 'idle', 'cursor', '', 'has_more', '0', 'last_error', '', 'updated_at', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return {'ok', redis.call('HGETALL', KEYS[1])}
`)

// RedisStore keeps each session in a hash that expires ttl after its last transition.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return KeyPrefix + id
}

func (r *RedisStore) Create(ctx context.Context, s *model.BrowseSession) error {
	key := sessionKey(s.ID)
	s.UpdatedAt = nowUTC()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, toHash(s))
		pipe.PExpire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*model.BrowseSession, error) {
	fields, err := r.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, model.ErrSessionNotFound
	}
	return fromHash(fields)
}

func (r *RedisStore) BeginLoad(ctx context.Context, id string) (*model.BrowseSession, error) {
	reply, err := beginScript.Run(ctx, r.client, []string{sessionKey(id)}, nowArg(), r.ttlArg()).Slice()
	if err != nil {
		return nil, fmt.Errorf("begin load: %w", err)
	}
	return parseReply(reply)
}

func (r *RedisStore) Complete(ctx context.Context, id string, gen int64, cursor string, hasMore bool) (*model.BrowseSession, error) {
	return r.finish(ctx, id, gen,
		"state", string(model.SessionLoaded),
		"cursor", cursor,
		"has_more", boolArg(hasMore),
	)
}

func (r *RedisStore) Fail(ctx context.Context, id string, gen int64, reason string) (*model.BrowseSession, error) {
	return r.finish(ctx, id, gen,
		"state", string(model.SessionFailed),
		"last_error", reason,
	)
}

func (r *RedisStore) Reset(ctx context.Context, id string) (*model.BrowseSession, error) {
	reply, err := resetScript.Run(ctx, r.client, []string{sessionKey(id)}, nowArg(), r.ttlArg()).Slice()
	if err != nil {
		return nil, fmt.Errorf("reset session: %w", err)
	}
	return parseReply(reply)
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *RedisStore) finish(ctx context.Context, id string, gen int64, pairs ...string) (*model.BrowseSession, error) {
	args := make([]interface{}, 0, 3+len(pairs))
	args = append(args, strconv.FormatInt(gen, 10), nowArg(), r.ttlArg())
	for _, p := range pairs {
		args = append(args, p)
	}

	reply, err := finishScript.Run(ctx, r.client, []string{sessionKey(id)}, args...).Slice()
	if err != nil {
		return nil, fmt.Errorf("finish load: %w", err)
	}
	return parseReply(reply)
}

func (r *RedisStore) ttlArg() int64 {
	return r.ttl.Milliseconds()
}

func nowArg() int64 {
	return nowUTC().UnixNano()
}

func boolArg(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseReply(reply []interface{}) (*model.BrowseSession, error) {
	if len(reply) == 0 {
		return nil, errors.New("empty script reply")
	}
	status, _ := reply[0].(string)
	switch status {
	case statusOK:
	case statusMissing:
		return nil, model.ErrSessionNotFound
	case statusLoading:
		return nil, model.ErrLoadInProgress
	case statusFailed:
		return nil, model.ErrSessionFailed
	case statusExhausted:
		return nil, model.ErrNoMorePages
	case statusGone:
		return nil, model.ErrSessionGone
	default:
		return nil, fmt.Errorf("unexpected script status %q", status)
	}

	if len(reply) < 2 {
		return nil, errors.New("script reply missing session fields")
	}
	flat, ok := reply[1].([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected session payload %T", reply[1])
	}
	fields := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		k, _ := flat[i].(string)
		v, _ := flat[i+1].(string)
		fields[k] = v
	}
	return fromHash(fields)
}

func toHash(s *model.BrowseSession) map[string]interface{} {
	return map[string]interface{}{
		"id":         s.ID,
		"viewer_id":  s.ViewerID,
		"song_id":    s.SongID,
		"state":      string(s.State),
		"cursor":     s.Cursor,
		"has_more":   boolArg(s.HasMore),
		"generation": s.Generation,
		"page_size":  s.PageSize,
		"last_error": s.LastError,
		"updated_at": s.UpdatedAt.UnixNano(),
	}
}

func fromHash(h map[string]string) (*model.BrowseSession, error) {
	gen, err := strconv.ParseInt(h["generation"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse session generation: %w", err)
	}
	size, err := strconv.Atoi(h["page_size"])
	if err != nil {
		return nil, fmt.Errorf("parse session page size: %w", err)
	}
	updated, err := strconv.ParseInt(h["updated_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse session timestamp: %w", err)
	}

	return &model.BrowseSession{
		ID:         h["id"],
		ViewerID:   h["viewer_id"],
		SongID:     h["song_id"],
		State:      model.SessionState(h["state"]),
		Cursor:     h["cursor"],
		HasMore:    h["has_more"] == "1",
		Generation: gen,
		PageSize:   size,
		LastError:  h["last_error"],
		UpdatedAt:  time.Unix(0, updated).UTC(),
	}, nil
}
