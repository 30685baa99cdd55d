package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"github.com/fintrack/backend/internal/config"
	"github.com/fintrack/backend/internal/models"
)

// QRService issues short-lived payment request codes. A request names the
// receiving account and the amount; whoever scans it gets the data back
// exactly once.
type QRService struct {
	db    *sql.DB
	redis *redis.Client
	cfg   *config.QRConfig
}

type PaymentRequest struct {
	OwnerID   string            `json:"ownerId"`
	Receiver  models.AccountRef `json:"receiver"`
	Amount    decimal.Decimal   `json:"amount"`
	Note      string            `json:"note,omitempty"`
	Timestamp int64             `json:"timestamp"`
	Nonce     string            `json:"nonce"`
}

func NewQRService(db *sql.DB, redisClient *redis.Client, cfg *config.QRConfig) *QRService {
	return &QRService{
		db:    db,
		redis: redisClient,
		cfg:   cfg,
	}
}

func (s *QRService) GeneratePaymentRequest(ctx context.Context, ownerID string, receiver models.AccountRef, amount decimal.Decimal, note string) (string, string, error) {
	if s.redis == nil {
		return "", "", fmt.Errorf("payment requests are unavailable")
	}

	var owns bool
	err := s.db.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM bank_accounts
			WHERE account_number = $1 AND fi_code = $2 AND owner_id = $3
		)`, receiver.AccountNumber, receiver.FiCode, ownerID).Scan(&owns)
	if err != nil {
		return "", "", err
	}
	if !owns {
		return "", "", fmt.Errorf("receiving account not found")
	}

	countKey := fmt.Sprintf("%s:count:%s", s.cfg.KeyPrefix, ownerID)
	count, err := s.redis.Incr(ctx, countKey).Result()
	if err != nil {
		return "", "", err
	}
	if count == 1 {
		s.redis.Expire(ctx, countKey, s.cfg.RateLimitWindow)
	}
	if int(count) > s.cfg.MaxPerUser {
		return "", "", fmt.Errorf("too many payment requests, try again later")
	}

	request := PaymentRequest{
		OwnerID:   ownerID,
		Receiver:  receiver,
		Amount:    amount.Round(2),
		Note:      note,
		Timestamp: time.Now().Unix(),
		Nonce:     s.generateNonce(),
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", "", err
	}

	code := base64.URLEncoding.EncodeToString(jsonData)

	key := fmt.Sprintf("%s:%s", s.cfg.KeyPrefix, code)
	if err := s.redis.Set(ctx, key, jsonData, s.cfg.CodeTTL).Err(); err != nil {
		return "", "", err
	}

	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(s.cfg.ImageSize)); err != nil {
		return "", "", err
	}

	image := base64.StdEncoding.EncodeToString(buf.Bytes())

	return code, image, nil
}

// ResolvePaymentRequest consumes a scanned code. Codes are single use.
func (s *QRService) ResolvePaymentRequest(ctx context.Context, code string) (*PaymentRequest, error) {
	if s.redis == nil {
		return nil, fmt.Errorf("payment requests are unavailable")
	}

	key := fmt.Sprintf("%s:%s", s.cfg.KeyPrefix, code)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("invalid or expired payment request")
	}
	if err != nil {
		return nil, err
	}

	var request PaymentRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return nil, err
	}

	s.redis.Del(ctx, key)

	return &request, nil
}

func (s *QRService) generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
