package s3

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/influence/pkg/staging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeBucket pages its listing one object at a time.
type fakeBucket struct {
	objects map[string]string
	keys    []string
	gets    []string
}

func (f *fakeBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	start := 0
	if in.ContinuationToken != nil {
		for i, k := range f.keys {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}
	var page []types.Object
	next := ""
	for i := start; i < len(f.keys); i++ {
		if !strings.HasPrefix(f.keys[i], aws.ToString(in.Prefix)) {
			continue
		}
		if len(page) == 1 {
			next = f.keys[i]
			break
		}
		page = append(page, types.Object{Key: aws.String(f.keys[i])})
	}
	out := &s3.ListObjectsV2Output{Contents: page, IsTruncated: aws.Bool(next != "")}
	if next != "" {
		out.NextContinuationToken = aws.String(next)
	}
	return out, nil
}

func (f *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.gets = append(f.gets, key)
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func newFakeBucket(objects map[string]string) *fakeBucket {
	f := &fakeBucket{objects: objects}
	for k := range objects {
		f.keys = append(f.keys, k)
	}
	slices.Sort(f.keys)
	return f
}

func TestBucketFileStore_ListPaginates(t *testing.T) {
	bucket := newFakeBucket(map[string]string{
		"staging/mps_interests/a.json":     "a",
		"staging/mps_interests/b.json":     "b",
		"staging/mps_interests/old/c.json": "c",
		"staging/party_funding/2017.json":  "[]",
		"elsewhere/mps_interests/d.json":   "d",
	})
	store := NewBucketFileStoreWithClient("bucket", "/staging/", bucket)

	names, err := store.List(context.Background(), staging.InterestsPrefix)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 || names[0] != "mps_interests/a.json" || names[1] != "mps_interests/b.json" {
		t.Fatalf("unexpected listing %v", names)
	}

	data, err := store.Get(context.Background(), names[1])
	if err != nil || string(data) != "b" {
		t.Fatalf("expected %q, got %q, %v", "b", data, err)
	}
	if bucket.gets[0] != "staging/mps_interests/b.json" {
		t.Fatalf("unexpected object key %q", bucket.gets[0])
	}
}

func TestBucketFileStore_GetError(t *testing.T) {
	store := NewBucketFileStoreWithClient("bucket", "", newFakeBucket(nil))
	if _, err := store.Get(context.Background(), "party_funding/missing.json"); err == nil {
		t.Fatal("expected error for missing object")
	}
}

func TestBucketFileStore_AsSource(t *testing.T) {
	bucket := newFakeBucket(map[string]string{
		"party_funding/2017.csv": "RegulatedEntityName,DonorName,Value\nJane Doe MP,Acme Ltd,£100\n",
	})
	src := staging.NewFileSource(NewBucketFileStoreWithClient("bucket", "", bucket))

	recs, err := src.FundingRecords(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(recs) != 1 || recs[0].Recipient != "Jane Doe MP" || recs[0].Value != "£100" {
		t.Fatalf("unexpected records %+v", recs)
	}
}
