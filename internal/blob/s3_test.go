package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/suite"
)

// fakeS3 serves path-style HEAD, GET and PUT for a single bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	switch req.Method {
	case http.MethodHead, http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			return response(http.StatusNotFound, nil, `<?xml version="1.0"?><Error><Code>NoSuchKey</Code></Error>`), nil
		}
		header := http.Header{
			"Content-Length": {strconv.Itoa(len(body))},
			"Content-Type":   {"application/octet-stream"},
		}
		if req.Method == http.MethodHead {
			return response(http.StatusOK, header, ""), nil
		}
		return response(http.StatusOK, header, string(body)), nil
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if decoded, ok := decodeAWSChunked(body); ok {
			body = decoded
		}
		f.objects[key] = body
		f.puts++
		return response(http.StatusOK, http.Header{"ETag": {`"etag"`}}, ""), nil
	}
	return response(http.StatusNotImplemented, nil, ""), nil
}

func response(status int, header http.Header, body string) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Header: header, Body: io.NopCloser(strings.NewReader(body))}
}

// decodeAWSChunked unwraps a single-chunk aws-chunked payload.
func decodeAWSChunked(b []byte) ([]byte, bool) {
	size, rest, ok := bytes.Cut(b, []byte("\r\n"))
	if !ok {
		return nil, false
	}
	n, err := strconv.ParseInt(string(size), 16, 64)
	if err != nil || int64(len(rest)) < n {
		return nil, false
	}
	if !bytes.HasPrefix(rest[n:], []byte("\r\n0")) {
		return nil, false
	}
	return rest[:n], true
}

type S3StoreSuite struct {
	suite.Suite
	fake  *fakeS3
	store *S3Store
}

func TestS3StoreSuite(t *testing.T) {
	suite.Run(t, new(S3StoreSuite))
}

func (s *S3StoreSuite) SetupTest() {
	s.fake = &fakeS3{objects: make(map[string][]byte)}
	client := s3.New(s3.Options{
		Region:                     "us-east-1",
		Credentials:                credentials.NewStaticCredentialsProvider("AKIA", "SECRET", ""),
		HTTPClient:                 &http.Client{Transport: s.fake},
		BaseEndpoint:               aws.String("https://s3.test.local"),
		UsePathStyle:               true,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
	s.store = NewS3WithClient(client, "packages", 1<<10)
}

func (s *S3StoreSuite) TestPutGetRoundTrip() {
	ctx := context.Background()
	payload := []byte(`{"mix":"M40","cement_kg":420}`)

	info, err := s.store.Put(ctx, payload, "application/json")
	s.Require().NoError(err)
	s.Equal(Locator(payload), info.Locator)

	digest, _ := ParseLocator(info.Locator)
	s.Equal(payload, s.fake.objects[digest])

	_, data, err := s.store.Get(ctx, info.Locator)
	s.Require().NoError(err)
	s.Equal(payload, data)

	ok, err := s.store.Exists(ctx, info.Locator)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *S3StoreSuite) TestPutSkipsExistingContent() {
	ctx := context.Background()
	for range 3 {
		_, err := s.store.Put(ctx, []byte("same"), "")
		s.Require().NoError(err)
	}
	s.Equal(1, s.fake.puts)
}

func (s *S3StoreSuite) TestMissingObject() {
	ctx := context.Background()
	missing := Locator([]byte("never stored"))

	ok, err := s.store.Exists(ctx, missing)
	s.Require().NoError(err)
	s.False(ok)

	_, _, err = s.store.Get(ctx, missing)
	s.ErrorIs(err, ErrNotFound)
}

func (s *S3StoreSuite) TestLimits() {
	_, err := s.store.Put(context.Background(), make([]byte, 2<<10), "")
	s.ErrorIs(err, ErrTooLarge)
	s.Zero(s.fake.puts)

	_, _, err = s.store.Get(context.Background(), fmt.Sprintf("keccak256:%s", "zz"))
	s.ErrorIs(err, ErrInvalidLocator)
}
