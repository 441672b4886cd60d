package storage

import (
	"encoding/xml"
	"time"
)

// Operation names, used in errors, logs and metrics.
const (
	OpList   = "list"
	OpPut    = "put"
	OpGet    = "get"
	OpDelete = "delete"
)

// ListResult is the parsed answer to ListPrefix.
type ListResult struct {
	Prefix      string
	KeyCount    int
	IsTruncated bool
	Objects     []ObjectInfo
}

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// listBucketResult is the ListObjectsV2 response body.
type listBucketResult struct {
	XMLName     xml.Name       `xml:"ListBucketResult"`
	Name        string         `xml:"Name"`
	Prefix      string         `xml:"Prefix"`
	MaxKeys     int            `xml:"MaxKeys"`
	KeyCount    int            `xml:"KeyCount"`
	IsTruncated bool           `xml:"IsTruncated"`
	Contents    []listContents `xml:"Contents"`
}

type listContents struct {
	Key          string    `xml:"Key"`
	LastModified time.Time `xml:"LastModified"`
	ETag         string    `xml:"ETag"`
	Size         int64     `xml:"Size"`
}

func (r listBucketResult) toListResult() *ListResult {
	result := &ListResult{
		Prefix:      r.Prefix,
		KeyCount:    r.KeyCount,
		IsTruncated: r.IsTruncated,
		Objects:     make([]ObjectInfo, 0, len(r.Contents)),
	}
	for _, c := range r.Contents {
		result.Objects = append(result.Objects, ObjectInfo{
			Key:          c.Key,
			Size:         c.Size,
			ETag:         c.ETag,
			LastModified: c.LastModified,
		})
	}
	return result
}
