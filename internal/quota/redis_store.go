// seehuhn.de/go/vectorize - interactive raster to vector conversion
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package quota

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "vectorize:session:"

// RedisStore keeps the guest id in Redis, so that several processes on
// behalf of one browser session share it. Saved ids do not expire.
type RedisStore struct {
	rdb redis.Cmdable
	key string
}

// NewRedisStore returns a store for the session called name.
func NewRedisStore(rdb redis.Cmdable, name string) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		key: sessionKeyPrefix + name,
	}
}

// Key returns the Redis key of the session.
func (r *RedisStore) Key() string {
	return r.key
}

func (r *RedisStore) Load(ctx context.Context) (string, error) {
	id, err := r.rdb.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return id, err
}

func (r *RedisStore) Save(ctx context.Context, id string) error {
	return r.rdb.Set(ctx, r.key, id, 0).Err()
}
