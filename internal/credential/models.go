// Package credential owns the off-chain credential record: descriptive
// metadata and file references keyed by the credential's content hash. The
// on-chain registry stays authoritative for validity; everything in here is
// display data.
package credential

import "time"

// Subject carries the selective-disclosure fields of a credential. The
// schema is deliberately permissive: known fields are typed, everything else
// rides in Custom as an open map validated only at the application boundary.
type Subject struct {
	DegreeName      string         `json:"degreeName,omitempty"`
	Course          string         `json:"course,omitempty"`
	GraduationYear  string         `json:"graduationYear,omitempty"`
	SkillCategory   string         `json:"skillCategory,omitempty"`
	CertificationID string         `json:"certificationId,omitempty"`
	Custom          map[string]any `json:"custom,omitempty"`
}

// Record is one off-chain credential. Hash is globally unique and the record
// is create-only: no update or delete path exists anywhere in the system.
type Record struct {
	Hash             string         `json:"hash"`
	Issuer           string         `json:"issuer"` // lowercase
	Holder           string         `json:"holder"` // lowercase
	CredentialName   string         `json:"credentialName"`
	Description      string         `json:"description"`
	DocumentType     string         `json:"documentType"`
	FromOrganisation string         `json:"fromOrganisation"`
	HolderDID        string         `json:"holderDID,omitempty"`
	IssuerDID        string         `json:"issuerDID,omitempty"`
	Subject          *Subject       `json:"credentialSubject,omitempty"`
	FileURL          string         `json:"fileUrl,omitempty"`
	ExpiryDate       int64          `json:"expiryDate"` // epoch milliseconds
	IssuedAt         time.Time      `json:"issuedAt"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// BatchResult is one entry of a batch lookup, ordered as the input hashes.
type BatchResult struct {
	Hash       string  `json:"hash"`
	Found      bool    `json:"found"`
	Credential *Record `json:"credential"`
}
