// Package archive stores the photos of confirmed captures.
package archive

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	cos "github.com/tencentyun/cos-go-sdk-v5"
)

var (
	ErrNotConfigured = errors.New("photo archive is not configured")
	ErrEmptyPhoto    = errors.New("photo is empty")
)

var fileNamePattern = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Archiver uploads a confirmed photo and returns its public URL.
type Archiver interface {
	Store(ctx context.Context, userID string, itemID string, photo []byte, mime string) (string, error)
}

// Nop discards every photo.
type Nop struct{}

func (Nop) Store(context.Context, string, string, []byte, string) (string, error) {
	return "", nil
}

type COSConfig struct {
	SecretID     string `yaml:"secret_id"`
	SecretKey    string `yaml:"secret_key"`
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	PublicDomain string `yaml:"public_domain"`
	Prefix       string `yaml:"prefix"`
}

func (c COSConfig) Enabled() bool {
	return strings.TrimSpace(c.SecretID) != "" &&
		strings.TrimSpace(c.SecretKey) != "" &&
		strings.TrimSpace(c.Bucket) != "" &&
		strings.TrimSpace(c.PublicDomain) != ""
}

// COS uploads into a Tencent Cloud Object Storage bucket.
type COS struct {
	client       *cos.Client
	publicDomain string
	prefix       string
}

func NewCOS(cfg COSConfig) (*COS, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "ap-hongkong"
	}
	bucketURL, err := url.Parse(fmt.Sprintf("https://%s.cos.%s.myqcloud.com", strings.TrimSpace(cfg.Bucket), region))
	if err != nil {
		return nil, err
	}
	client := cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  strings.TrimSpace(cfg.SecretID),
			SecretKey: strings.TrimSpace(cfg.SecretKey),
		},
	})
	return &COS{
		client:       client,
		publicDomain: strings.TrimRight(strings.TrimSpace(cfg.PublicDomain), "/"),
		prefix:       strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
	}, nil
}

// New returns a COS archiver when configured and Nop otherwise.
func New(cfg COSConfig) (Archiver, error) {
	if !cfg.Enabled() {
		return Nop{}, nil
	}
	return NewCOS(cfg)
}

func (a *COS) Store(ctx context.Context, userID string, itemID string, photo []byte, mime string) (string, error) {
	if len(photo) == 0 {
		return "", ErrEmptyPhoto
	}
	key := objectKey(a.prefix, userID, itemID, mime, time.Now())
	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{ContentType: mime},
	}
	if _, err := a.client.Object.Put(ctx, key, bytes.NewReader(photo), opt); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return a.publicDomain + "/" + key, nil
}

func objectKey(prefix string, userID string, itemID string, mime string, now time.Time) string {
	name := sanitizeFileName(itemID) + extensionFor(mime)
	key := fmt.Sprintf("%s/%d_%s_%s", sanitizeFileName(userID), now.Unix(), randomHex(4), name)
	if prefix != "" {
		key = prefix + "/" + key
	}
	return key
}

func extensionFor(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

func sanitizeFileName(fileName string) string {
	base := strings.TrimSpace(filepath.Base(fileName))
	if base == "" || base == "." || base == ".." || base == "/" {
		base = "upload"
	}
	base = strings.Trim(fileNamePattern.ReplaceAllString(base, "_"), "_")
	if base == "" {
		base = "upload"
	}
	return base
}

func randomHex(bytesLen int) string {
	if bytesLen <= 0 {
		bytesLen = 4
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "r"
	}
	return hex.EncodeToString(buf)
}
