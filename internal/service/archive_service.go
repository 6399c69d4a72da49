package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testhub_backend/internal/config"
	"testhub_backend/internal/model"
	"testhub_backend/pkg/logger"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ArchiveService uploads a JSON transcript of each completed session to
// object storage. Failures are logged, never surfaced: archival is a
// best-effort side effect of finalization.
type ArchiveService struct {
	client *minio.Client
	bucket string
}

func NewArchiveService(cfg config.ArchiveConfig) (*ArchiveService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &ArchiveService{client: client, bucket: cfg.Bucket}, nil
}

type sessionTranscript struct {
	Session   *model.TestSession   `json:"session"`
	Questions []model.TestQuestion `json:"questions"`
	Answers   []model.TestAnswer   `json:"answers"`
}

func (s *ArchiveService) ArchiveSession(ctx context.Context, session *model.TestSession, questions []model.TestQuestion, answers []model.TestAnswer) {
	transcript := sessionTranscript{
		Session:   session,
		Questions: questions,
		Answers:   answers,
	}

	payload, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		logger.Log.Error("failed to encode session transcript", zap.Error(err), zap.String("session_id", session.ID))
		return
	}

	objectName := fmt.Sprintf("sessions/%s/%s.json", time.Now().Format("2006-01"), session.ID)

	_, err = s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		logger.Log.Error("failed to archive session transcript", zap.Error(err), zap.String("session_id", session.ID))
		return
	}

	logger.Log.Info("archived session transcript",
		zap.String("session_id", session.ID),
		zap.String("object", objectName),
	)
}
