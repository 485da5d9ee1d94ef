package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"jardin/internal/model"
	"jardin/internal/queue"
)

type CaptureRequest struct {
	ItemID   string
	Photo    []byte
	FileName string
	MIME     string
}

type CaptureOutcome struct {
	ItemID         string                `json:"item_id"`
	State          model.CaptureState    `json:"state"`
	Message        string                `json:"message,omitempty"`
	Classification *model.Classification `json:"classification,omitempty"`
	Milestones     []model.Milestone     `json:"milestones,omitempty"`
	Unlocked       []model.Plant         `json:"unlocked,omitempty"`
}

// Capture runs one capture attempt. Offline captures are queued; online ones
// are classified immediately and committed when accepted. A rejection is not
// an error. Endpoint and commit failures end in CaptureError.
func (s *Service) Capture(ctx context.Context, sess Session, req CaptureRequest, online bool) (Session, CaptureOutcome, error) {
	sess = sess.clone()
	itemID := strings.TrimSpace(req.ItemID)
	out := CaptureOutcome{ItemID: itemID, State: model.CaptureIdle}
	if itemID == "" {
		return sess, out, ErrItemRequired
	}

	out.State = model.CaptureAwaitingFile
	if len(req.Photo) == 0 {
		out.Message = "no photo selected"
		return sess, out, nil
	}
	logger := s.logger.With(zap.String("user_id", sess.User.ID), zap.String("item_id", itemID))

	if !online {
		added, err := s.queue.Enqueue(ctx, itemID, queue.EncodePhoto(req.MIME, req.Photo))
		if err != nil {
			out.State = model.CaptureError
			out.Message = "the capture could not be saved for later"
			return sess, out, errors.Join(ErrQueueWrite, err)
		}
		out.State = model.CaptureOfflineQueued
		out.Message = "saved, it will be checked when the connection returns"
		if !added {
			out.Message = "already waiting for the connection"
		}
		logger.Info("capture queued offline", zap.Bool("added", added))
		return sess, out, nil
	}

	out.State = model.CaptureSubmitting
	fileName := req.FileName
	if strings.TrimSpace(fileName) == "" {
		fileName = fileNameFor(itemID, req.MIME)
	}
	result, err := s.classifier.Classify(ctx, req.Photo, fileName, itemID)
	if err != nil {
		logger.Warn("classification failed", zap.Error(err))
		out.State = model.CaptureError
		out.Message = "the photo could not be analyzed"
		return sess, out, fmt.Errorf("%w: %w", ErrClassification, err)
	}
	out.Classification = &result

	if !result.Accepted() {
		out.State = model.CaptureRejected
		out.Message = fmt.Sprintf("looks like %s (%.0f%% confidence)", displayLabel(result.PredictedLabel), result.Confidence)
		logger.Info("capture rejected",
			zap.String("predicted", result.PredictedLabel),
			zap.Float64("confidence", result.Confidence),
			zap.Bool("match", result.Match),
		)
		return sess, out, nil
	}

	mime := req.MIME
	if strings.TrimSpace(mime) == "" {
		mime = http.DetectContentType(req.Photo)
	}
	if err := s.commit(ctx, sess, itemID, req.Photo, mime); err != nil {
		logger.Error("commit capture failed", zap.Error(err))
		out.State = model.CaptureError
		out.Message = "the confirmation could not be saved"
		return sess, out, errors.Join(ErrCommit, err)
	}
	out.State = model.CaptureConfirmed
	out.Message = fmt.Sprintf("%s confirmed (%.0f%% confidence)", itemID, result.Confidence)
	sess, out.Milestones, out.Unlocked = s.advance(ctx, sess)
	logger.Info("capture confirmed", zap.Float64("confidence", result.Confidence))
	return sess, out, nil
}

func displayLabel(label string) string {
	if label = strings.TrimSpace(label); label == "" {
		return "another plant"
	}
	return label
}

func fileNameFor(itemID string, mime string) string {
	ext := ".jpg"
	switch mime {
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	}
	name := strings.Map(func(r rune) rune {
		if r == ' ' || r == '/' {
			return '_'
		}
		return r
	}, strings.ToLower(strings.TrimSpace(itemID)))
	return name + ext
}
