package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"DocTrack/internal/data"
	"DocTrack/internal/model"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB 每个测试一个独立的内存库，名字取自测试名避免串库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, data.Migrate(db))
	return db
}

func makeUser(t *testing.T, db *gorm.DB, name, email, role, department string) *model.User {
	t.Helper()
	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		Department:   department,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// fakeBlobStore 记录写入和删除，可注入写失败
type fakeBlobStore struct {
	mu      sync.Mutex
	puts    []string
	removes []string
	failPut bool
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return "", fmt.Errorf("blob store down")
	}
	f.puts = append(f.puts, key)
	return "fake://bucket/" + key, nil
}

func (f *fakeBlobStore) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes = append(f.removes, key)
	return nil
}

// fakeNotifier 记录每次派发，可注入发送失败
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

type sentMessage struct {
	Recipient string
	Template  string
	Data      map[string]string
}

func (f *fakeNotifier) Send(ctx context.Context, recipient, templateName string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("notifier down")
	}
	f.sent = append(f.sent, sentMessage{Recipient: recipient, Template: templateName, Data: data})
	return nil
}

func (f *fakeNotifier) count(template string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.sent {
		if m.Template == template {
			n++
		}
	}
	return n
}

// fakeEmbedder 按关键词返回固定向量，便于断言相似度排序
type fakeEmbedder struct {
	vectors     map[string][]float64
	fallbackVec []float64
	unavailable bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if f.unavailable {
		return nil, fmt.Errorf("endpoint down: %w", ErrEmbeddingsUnavailable)
	}
	for key, vec := range f.vectors {
		if strings.Contains(text, key) {
			return vec, nil
		}
	}
	if f.fallbackVec != nil {
		return f.fallbackVec, nil
	}
	return []float64{0, 0, 1}, nil
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
