package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/go-cmp/cmp"

	"github.com/archivio-hq/collection-notifier/internal/domain"
)

type fakeS3Client struct {
	objects map[string]string
	getErr  error
	putErr  error

	lastPut *s3.PutObjectInput
}

func (f *fakeS3Client) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	body, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (f *fakeS3Client) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.lastPut = params
	raw, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[aws.ToString(params.Key)] = string(raw)
	return &s3.PutObjectOutput{}, nil
}

func newTestS3(client s3Client) *s3Store {
	return &s3Store{client: client, bucket: "notifier-state", key: "results.json"}
}

func TestS3LoadMissingKeyIsNotFound(t *testing.T) {
	store := newTestS3(&fakeS3Client{})

	_, err := store.Load(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestS3LoadDecodesRecords(t *testing.T) {
	store := newTestS3(&fakeS3Client{objects: map[string]string{
		"results.json": `[{"uri":"/repositories/2/resources/1","title":"A"}]`,
	}})

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []domain.Record{{URI: "/repositories/2/resources/1", Title: "A"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestS3LoadMalformedBody(t *testing.T) {
	store := newTestS3(&fakeS3Client{objects: map[string]string{
		"results.json": `{"not":"an array"}`,
	}})

	if _, err := store.Load(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestS3SaveWritesJSONDocument(t *testing.T) {
	client := &fakeS3Client{}
	store := newTestS3(client)
	ctx := context.Background()

	records := []domain.Record{
		{URI: "/repositories/2/resources/1", Title: "A"},
		{URI: "/repositories/2/resources/2", Title: "B"},
	}
	if err := store.Save(ctx, records); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if got := aws.ToString(client.lastPut.Bucket); got != "notifier-state" {
		t.Fatalf("Bucket = %s", got)
	}
	if got := aws.ToString(client.lastPut.ContentType); got != "application/json" {
		t.Fatalf("ContentType = %s", got)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load after Save: %v", err)
	}
	if diff := cmp.Diff(records, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestS3SaveSurfacesPutError(t *testing.T) {
	store := newTestS3(&fakeS3Client{putErr: errors.New("boom")})

	if err := store.Save(context.Background(), nil); err == nil {
		t.Fatalf("expected error from PutObject")
	}
}

func TestS3RoundTripIsByteStable(t *testing.T) {
	client := &fakeS3Client{objects: map[string]string{
		"results.json": `[{"uri":"/a","title":"A"}]`,
	}}
	store := newTestS3(client)
	ctx := context.Background()

	records, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Save(ctx, records); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := client.objects["results.json"]; got != `[{"uri":"/a","title":"A"}]` {
		t.Fatalf("stored document changed: %s", got)
	}
}
