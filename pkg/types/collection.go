package types

// CollectionMetadata is the immutable metadata a collection is deployed with.
type CollectionMetadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description,omitempty"`
	Max         Amount `json:"max"`
	Premine     Amount `json:"premine"`
	// MinterMd5 fingerprints the minter contract; it selects the minter variant.
	MinterMd5 string `json:"minterMd5"`
}

// CollectionInfo describes a deployed NFT collection as indexed by the tracker.
type CollectionInfo struct {
	CollectionID   string             `json:"collectionId"`
	CollectionAddr string             `json:"collectionAddr"`
	MinterAddr     string             `json:"minterAddr"`
	RevealTxID     Hash               `json:"revealTxid"`
	Metadata       CollectionMetadata `json:"metadata"`
}
