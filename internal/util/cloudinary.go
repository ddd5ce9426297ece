package util

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log"
	"net/http"
	"path"
	"regexp"
	"strings"

	"shopback/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// Delivery transformation injected into every returned URL so images are served as WebP.
const cloudinaryDelivery = "f_webp,q_auto,w_1280"

var versionSegment = regexp.MustCompile(`^v\d+$`)

type CloudinaryClient struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryClient(cfg *config.Config) (*CloudinaryClient, error) {
	if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials not configured")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &CloudinaryClient{
		cld:    cld,
		folder: strings.Trim(cfg.CloudinaryFolder, "/"),
	}, nil
}

// Upload compresses and uploads a new image under a fresh public id.
func (c *CloudinaryClient) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	publicID := uuid.New().String()
	if c.folder != "" {
		publicID = c.folder + "/" + publicID
	}
	return c.upload(ctx, data, publicID)
}

// Overwrite replaces the asset behind existingURL in place. The returned URL
// carries the new version segment.
func (c *CloudinaryClient) Overwrite(ctx context.Context, data []byte, existingURL string) (string, error) {
	publicID, err := CloudinaryPublicID(existingURL)
	if err != nil {
		return "", err
	}
	return c.upload(ctx, data, publicID)
}

// Delete destroys the asset behind url. An asset that no longer exists
// counts as deleted.
func (c *CloudinaryClient) Delete(ctx context.Context, url string) bool {
	publicID, err := CloudinaryPublicID(url)
	if err != nil {
		log.Printf("Cloudinary delete skipped: %v", err)
		return false
	}

	result, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
		Invalidate:   api.Bool(true),
	})
	if err != nil {
		log.Printf("Cloudinary delete failed for %s: %v", publicID, err)
		return false
	}
	if !cloudinaryDestroyed(result.Result) {
		log.Printf("Cloudinary delete for %s returned %q", publicID, result.Result)
		return false
	}
	return true
}

// Destroy answers "ok" or "not found"; anything else is a failure.
func cloudinaryDestroyed(result string) bool {
	return result == "ok" || result == "not found"
}

func (c *CloudinaryClient) upload(ctx context.Context, data []byte, publicID string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty image data")
	}

	compressed, err := CompressImage(data)
	if err != nil {
		// If compression fails, use original
		compressed = data
	}

	result, err := c.cld.Upload.Upload(ctx, bytes.NewReader(compressed), uploader.UploadParams{
		PublicID:     publicID,
		Overwrite:    api.Bool(true),
		Invalidate:   api.Bool(true),
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("error uploading to cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("error uploading to cloudinary: %s", result.Error.Message)
	}

	// Inject transformation into URL so image is served as WebP
	return strings.Replace(result.SecureURL, "/upload/", "/upload/"+cloudinaryDelivery+"/", 1), nil
}

// CloudinaryPublicID extracts the public id (folder included, extension
// stripped) from a delivery URL produced by this client.
func CloudinaryPublicID(url string) (string, error) {
	idx := strings.Index(url, "/upload/")
	if idx < 0 {
		return "", fmt.Errorf("not a cloudinary upload url: %q", url)
	}

	segments := strings.Split(url[idx+len("/upload/"):], "/")
	if len(segments) > 0 && segments[0] == cloudinaryDelivery {
		segments = segments[1:]
	}
	if len(segments) > 0 && versionSegment.MatchString(segments[0]) {
		segments = segments[1:]
	}
	if len(segments) == 0 || segments[len(segments)-1] == "" {
		return "", fmt.Errorf("missing public id in url: %q", url)
	}

	publicID := strings.Join(segments, "/")
	return strings.TrimSuffix(publicID, path.Ext(publicID)), nil
}

// CompressImage re-encodes JPEG and PNG images as JPEG at quality 80.
// Other formats are returned unchanged.
func CompressImage(data []byte) ([]byte, error) {
	var (
		img image.Image
		err error
	)

	switch http.DetectContentType(data) {
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("error decoding JPEG: %w", err)
		}
	case "image/png":
		img, err = png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("error decoding PNG: %w", err)
		}
	default:
		return data, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("error encoding compressed image: %w", err)
	}
	return buf.Bytes(), nil
}
