package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/logging"
)

type CacheTestSuite struct {
	suite.Suite
	client *Client
	mock   redismock.ClientMock
	cache  Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.client = &Client{
		rdb:    db,
		config: &Config{},
		logger: logging.NewNopLogger(),
	}
	s.cache = NewRedisCache(s.client, logging.NewNopLogger(), WithPrefix("test:"))
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

type cachedHolidays struct {
	Year  int      `json:"year"`
	Dates []string `json:"dates"`
}

func (s *CacheTestSuite) TestGet_CacheHit() {
	val := cachedHolidays{Year: 2026, Dates: []string{"2026-01-01", "2026-05-01"}}
	raw, _ := json.Marshal(val)

	s.mock.ExpectGet("test:holidays:2026").SetVal(string(raw))

	var dest cachedHolidays
	err := s.cache.Get(context.Background(), "holidays:2026", &dest)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), val, dest)
}

func (s *CacheTestSuite) TestGet_CacheMiss() {
	s.mock.ExpectGet("test:holidays:2026").RedisNil()

	var dest cachedHolidays
	err := s.cache.Get(context.Background(), "holidays:2026", &dest)
	assert.Equal(s.T(), ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:k1", "test:k2").SetVal(2)

	err := s.cache.Delete(context.Background(), "k1", "k2")
	assert.NoError(s.T(), err)
}

func (s *CacheTestSuite) TestDelete_NoKeys() {
	assert.NoError(s.T(), s.cache.Delete(context.Background()))
}

func (s *CacheTestSuite) TestExists() {
	s.mock.ExpectExists("test:k1").SetVal(1)

	exists, err := s.cache.Exists(context.Background(), "k1")
	assert.NoError(s.T(), err)
	assert.True(s.T(), exists)
}

func (s *CacheTestSuite) TestGetOrSet_HitSkipsLoader() {
	val := cachedHolidays{Year: 2026, Dates: []string{"2026-07-09"}}
	raw, _ := json.Marshal(val)

	s.mock.ExpectGet("test:holidays:2026").SetVal(string(raw))

	loaderCalled := false
	var dest cachedHolidays
	err := s.cache.GetOrSet(context.Background(), "holidays:2026", &dest, time.Minute,
		func(ctx context.Context) (interface{}, error) {
			loaderCalled = true
			return nil, nil
		})

	assert.NoError(s.T(), err)
	assert.False(s.T(), loaderCalled)
	assert.Equal(s.T(), val, dest)
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}
