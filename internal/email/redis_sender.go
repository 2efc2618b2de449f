package email

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Kinds of mail recognised by RedisSender when building its key.
const (
	KindAdoption = "adoption"
	KindOther    = "other"
)

const redisMailTTL = 5 * time.Minute

// RedisSender stores messages in Redis instead of sending them, so test runs
// can read them back through the service API.
type RedisSender struct {
	client redis.Cmdable
	logger *zap.Logger
}

func NewRedisSender(client redis.Cmdable, logger *zap.Logger) Sender {
	return &RedisSender{client: client, logger: logger}
}

// MockMailKey is where RedisSender keeps the last message of kind sent to addr.
func MockMailKey(addr, kind string) string {
	return fmt.Sprintf("mockemail:%s:%s", strings.ToLower(addr), kind)
}

func mailKind(subject string) string {
	if strings.Contains(strings.ToLower(subject), "sahiplenme") {
		return KindAdoption
	}
	return KindOther
}

func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}
	data, err := json.Marshal(map[string]interface{}{
		"to":      strings.Join(to, ", "),
		"subject": subject,
		"body":    string(rawMessage),
		"sent_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := MockMailKey(to[0], mailKind(subject))
	if err := s.client.Set(ctx, key, data, redisMailTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}
	s.logger.Debug("Email stored in Redis", zap.String("key", key))
	return nil
}
