// Package media stores uploaded chat images in Firebase Storage.
package media

import (
	"context"
	"fmt"
	"path"
	"time"

	cstorage "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// PlaceholderImageURL is returned when no storage bucket is configured, so
// local development works without cloud credentials.
const PlaceholderImageURL = "https://picsum.photos/300/200"

const uploadPrefix = "uploads"

// Uploader writes image blobs to a Firebase Storage bucket and returns their
// public download URLs.
type Uploader struct {
	bucketName string
	bucket     *cstorage.BucketHandle
}

// NewUploader connects to the configured storage bucket. Credentials follow
// the same resolution as the Firestore client: an explicit credentials file
// if given, otherwise Application Default Credentials.
func NewUploader(ctx context.Context, projectID, bucketName, credentialsFile string) (*Uploader, error) {
	conf := &firebase.Config{
		ProjectID:     projectID,
		StorageBucket: bucketName,
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize storage client: %w", err)
	}

	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("open storage bucket: %w", err)
	}

	return &Uploader{bucketName: bucketName, bucket: bucket}, nil
}

// Upload writes the blob under a unique object name and returns its URL.
func (u *Uploader) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	objectName := path.Join(uploadPrefix, uuid.NewString()+path.Ext(filename))

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	w := u.bucket.Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", objectName, err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucketName, objectName), nil
}
