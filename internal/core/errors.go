package core

import "errors"

var (
	// ErrNotFound is returned when a referenced article does not exist
	ErrNotFound = errors.New("article not found")

	// ErrNotOriginal is returned when enhancement is requested for a non-original article
	ErrNotOriginal = errors.New("only original articles can be enhanced")

	// ErrNoReferencesFound is returned when discovery yields nothing usable for a topic
	ErrNoReferencesFound = errors.New("no reference articles found for this topic")

	// ErrNoContentCollected is returned when every reference candidate failed extraction
	ErrNoContentCollected = errors.New("failed to collect content from any reference article")

	// ErrExtraction is returned when a single page could not be read
	ErrExtraction = errors.New("extraction failed")

	// ErrDiscovery is returned when the search capability fails
	ErrDiscovery = errors.New("reference discovery failed")

	// ErrGeneration is returned when the generation backend fails
	ErrGeneration = errors.New("generation failed")

	// ErrConfiguration is returned when a required credential or setting is missing
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidArticle is returned when an article fails validation
	ErrInvalidArticle = errors.New("invalid article")

	// ErrDuplicate is returned when a create collides with an existing source URL
	ErrDuplicate = errors.New("article with this source_url already exists")
)
