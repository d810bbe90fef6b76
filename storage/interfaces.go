package storage

import "carscout/models"

// ListingWriter is the narrow save contract any storage backend satisfies.
type ListingWriter interface {
	Write(listings []*models.Listing) error
	Close() error
}

// ListingReader is the narrow query contract.
type ListingReader interface {
	FetchRecent(limit int) ([]*models.Listing, error)
}
