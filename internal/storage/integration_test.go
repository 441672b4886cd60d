package storage

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/sigil/internal/config"
	"github.com/prn-tf/sigil/internal/sigv4"
)

// TestLiveR2 cross-checks the client against the AWS SDK on a real bucket.
// It runs only with SIGIL_R2_INTEGRATION=1 and the R2_* variables set.
func TestLiveR2(t *testing.T) {
	if os.Getenv("SIGIL_R2_INTEGRATION") != "1" {
		t.Skip("set SIGIL_R2_INTEGRATION=1 to run against a live bucket")
	}

	cfg := config.R2Config{
		AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		Bucket:          os.Getenv("R2_BUCKET"),
		Endpoint:        os.Getenv("R2_ENDPOINT"),
		AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		ForcePathStyle:  os.Getenv("R2_FORCE_PATH_STYLE") == "true",
	}
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := NewClient(sigv4.NewSigner(cfg), zerolog.Nop())

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(sigv4.RegionAuto),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	require.NoError(t, err)
	sdk := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = cfg.ForcePathStyle
	})

	ours := "diag/it-" + uuid.NewString() + " (ours).json"
	theirs := "diag/it-" + uuid.NewString() + " (sdk).json"
	payload := `{"ok":true}`

	t.Cleanup(func() {
		_ = client.DeleteObject(context.Background(), ours)
		_ = client.DeleteObject(context.Background(), theirs)
	})

	// Written by us, read by the SDK.
	require.NoError(t, client.PutObject(ctx, ours, []byte(payload), "application/json"))
	out, err := sdk.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(cfg.Bucket), Key: aws.String(ours)})
	require.NoError(t, err)
	got, err := io.ReadAll(out.Body)
	out.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
	assert.Equal(t, "application/json", aws.ToString(out.ContentType))

	// Written by the SDK, read by us.
	_, err = sdk.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(cfg.Bucket),
		Key:    aws.String(theirs),
		Body:   strings.NewReader(payload),
	})
	require.NoError(t, err)
	body, err := client.GetObject(ctx, theirs)
	require.NoError(t, err)
	assert.Equal(t, payload, body)

	_, err = client.ListPrefix(ctx, "diag/", 1)
	require.NoError(t, err)

	require.NoError(t, client.DeleteObject(ctx, ours))
	require.NoError(t, client.DeleteObject(ctx, theirs))

	_, err = sdk.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(cfg.Bucket), Key: aws.String(ours)})
	assert.Error(t, err)
}
