// Package specstore declares the contract of the blob store holding
// declarative workflow documents. dagmirror only reads it; the store is the
// source of truth and local Workflow records are its mirror.
package specstore

import (
	"context"
	"errors"
)

// raised for any storage-level trouble: unreachable store, unreadable
// document, and the like. Reads never return partially populated content.
var ErrStorage = errors.New("spec store error")

type Store interface {
	// ListAllDocuments returns paths of all documents in the store.
	//
	// Paths are store-relative keys, usable with Read as-is.
	//
	// Returns
	//
	// - []string: document paths. Empty (not nil) when the store holds nothing.
	//
	// - error: ErrStorage-wrapped on storage trouble.
	ListAllDocuments(ctx context.Context) ([]string, error)

	// Read returns the whole raw content of the document at path.
	//
	// Returns
	//
	// - []byte: the content. Never partial: on trouble, only error is returned.
	//
	// - error: ErrStorage-wrapped on storage trouble.
	Read(ctx context.Context, path string) ([]byte, error)
}
