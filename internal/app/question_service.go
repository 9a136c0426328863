package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// QuestionStore persists the question bank. An empty level or round means no filter.
type QuestionStore interface {
	ListQuestions(ctx context.Context, level domain.Level, round string) ([]domain.Question, error)
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	CreateQuestion(ctx context.Context, q domain.Question) error
	UpdateQuestion(ctx context.Context, q domain.Question) error
	DeleteQuestion(ctx context.Context, id string) error
}

// ImageStore keeps question images and returns a reference usable by clients.
type ImageStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// QuestionCache is implemented by cached question repositories.
type QuestionCache interface {
	Invalidate(ctx context.Context, level domain.Level) error
}

// QuestionInput carries the editable fields of a question.
type QuestionInput struct {
	Level   domain.Level
	Round   string
	Options map[string]string
	Correct string
}

// ImageUpload is an uploaded image file.
type ImageUpload struct {
	Filename string
	Body     io.Reader
}

// QuestionOptions configures image validation.
type QuestionOptions struct {
	MaxImageBytes     int64
	AllowedExtensions []string
	Logger            *zap.Logger
	Now               func() time.Time
}

const DefaultMaxImageBytes = 5 << 20

var defaultImageExtensions = []string{"png", "jpg", "jpeg", "gif"}

// QuestionService manages the question bank and question images.
type QuestionService struct {
	store   QuestionStore
	images  ImageStore
	cache   QuestionCache
	logger  *zap.Logger
	now     func() time.Time
	maxSize int64
	exts    map[string]struct{}
}

// NewQuestionService builds the service. cache may be nil when reads are not cached.
func NewQuestionService(store QuestionStore, images ImageStore, cache QuestionCache, opts QuestionOptions) *QuestionService {
	s := &QuestionService{
		store:   store,
		images:  images,
		cache:   cache,
		logger:  opts.Logger,
		now:     opts.Now,
		maxSize: opts.MaxImageBytes,
		exts:    make(map[string]struct{}),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.maxSize <= 0 {
		s.maxSize = DefaultMaxImageBytes
	}
	exts := opts.AllowedExtensions
	if len(exts) == 0 {
		exts = defaultImageExtensions
	}
	for _, ext := range exts {
		s.exts[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return s
}

func (s *QuestionService) List(ctx context.Context, level domain.Level, round string) ([]domain.Question, error) {
	if level != "" && !level.Valid() {
		return nil, invalidf("unknown level %q", level)
	}
	round = strings.ToLower(strings.TrimSpace(round))
	if round != "" && !validRound(round) {
		return nil, invalidf("unknown round %q", round)
	}
	qs, err := s.store.ListQuestions(ctx, level, round)
	if err != nil {
		return nil, storageErr("list questions", err)
	}
	return qs, nil
}

func (s *QuestionService) Get(ctx context.Context, id string) (domain.Question, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, storageErr("get question", err)
	}
	return q, nil
}

// Create validates and stores a question, uploading its image first when given.
func (s *QuestionService) Create(ctx context.Context, in QuestionInput, img *ImageUpload) (domain.Question, error) {
	q, err := normalizeQuestion(in)
	if err != nil {
		return domain.Question{}, err
	}
	q.ID = uuid.NewString()

	if img != nil {
		ref, err := s.saveImage(ctx, *img)
		if err != nil {
			return domain.Question{}, err
		}
		q.ImageRef = ref
	}

	if err := s.store.CreateQuestion(ctx, q); err != nil {
		s.dropImage(ctx, q.ImageRef)
		return domain.Question{}, storageErr("create question", err)
	}
	s.invalidate(ctx, q.Level)
	s.logger.Info("question created", zap.String("question", q.ID), zap.String("level", string(q.Level)))
	return q, nil
}

// Update replaces the fields of a question. A new image replaces the previous one.
func (s *QuestionService) Update(ctx context.Context, id string, in QuestionInput, img *ImageUpload) (domain.Question, error) {
	q, err := normalizeQuestion(in)
	if err != nil {
		return domain.Question{}, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	q.ID = existing.ID
	q.ImageRef = existing.ImageRef

	if img != nil {
		ref, err := s.saveImage(ctx, *img)
		if err != nil {
			return domain.Question{}, err
		}
		q.ImageRef = ref
	}

	if err := s.store.UpdateQuestion(ctx, q); err != nil {
		if q.ImageRef != existing.ImageRef {
			s.dropImage(ctx, q.ImageRef)
		}
		return domain.Question{}, storageErr("update question", err)
	}
	if q.ImageRef != existing.ImageRef {
		s.dropImage(ctx, existing.ImageRef)
	}
	s.invalidate(ctx, existing.Level)
	if q.Level != existing.Level {
		s.invalidate(ctx, q.Level)
	}
	return q, nil
}

// Delete removes a question and, best effort, its image.
func (s *QuestionService) Delete(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteQuestion(ctx, id); err != nil {
		return storageErr("delete question", err)
	}
	s.dropImage(ctx, existing.ImageRef)
	s.invalidate(ctx, existing.Level)
	s.logger.Info("question deleted", zap.String("question", id))
	return nil
}

func (s *QuestionService) saveImage(ctx context.Context, img ImageUpload) (string, error) {
	base := filepath.Base(strings.ReplaceAll(img.Filename, "\\", "/"))
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	if _, ok := s.exts[ext]; !ok || base == "." || base == "/" {
		return "", invalidf("image type %q not allowed", ext)
	}
	if img.Body == nil {
		return "", invalidf("image body is empty")
	}

	data, err := io.ReadAll(io.LimitReader(img.Body, s.maxSize+1))
	if err != nil {
		return "", invalidf("read image: %v", err)
	}
	if len(data) == 0 {
		return "", invalidf("image body is empty")
	}
	if int64(len(data)) > s.maxSize {
		return "", invalidf("image exceeds %d bytes", s.maxSize)
	}

	name := fmt.Sprintf("%d_%s", s.now().Unix(), strings.ReplaceAll(base, " ", "_"))
	ref, err := s.images.Save(ctx, name, bytes.NewReader(data))
	if err != nil {
		return "", storageErr("save image", err)
	}
	return ref, nil
}

func (s *QuestionService) dropImage(ctx context.Context, ref string) {
	if ref == "" || s.images == nil {
		return
	}
	if err := s.images.Delete(ctx, ref); err != nil {
		s.logger.Warn("image cleanup failed", zap.String("image", ref), zap.Error(err))
	}
}

func (s *QuestionService) invalidate(ctx context.Context, level domain.Level) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, level); err != nil {
		s.logger.Warn("question cache invalidation failed", zap.String("level", string(level)), zap.Error(err))
	}
}

func normalizeQuestion(in QuestionInput) (domain.Question, error) {
	if !in.Level.Valid() {
		return domain.Question{}, invalidf("unknown level %q", in.Level)
	}
	round := strings.ToLower(strings.TrimSpace(in.Round))
	if round != "" && !validRound(round) {
		return domain.Question{}, invalidf("unknown round %q", in.Round)
	}

	options := make(map[string]string, len(domain.OptionKeys))
	for k, v := range in.Options {
		options[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	if len(options) != len(domain.OptionKeys) {
		return domain.Question{}, invalidf("exactly %d options are required", len(domain.OptionKeys))
	}
	for _, key := range domain.OptionKeys {
		if options[key] == "" {
			return domain.Question{}, invalidf("option %q is required", key)
		}
	}
	correct := strings.ToLower(strings.TrimSpace(in.Correct))
	if _, ok := options[correct]; !ok {
		return domain.Question{}, invalidf("correct answer must be one of a, b, c, d")
	}

	return domain.Question{
		Level:   in.Level,
		Round:   round,
		Options: options,
		Correct: correct,
	}, nil
}
