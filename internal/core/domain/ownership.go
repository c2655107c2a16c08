package domain

import "time"

// OwnershipForm is the typed representation of an ownership document
// (forms 3, 4 and 5). Optional leaves are pointers; nil means absent.
type OwnershipForm struct {
	SchemaVersion            *string           `json:"schemaVersion"`
	DocumentType             *string           `json:"documentType"`
	PeriodOfReport           *time.Time        `json:"periodOfReport"`
	DateOfOriginalSubmission *time.Time        `json:"dateOfOriginalSubmission"`
	NotSubjectToSection16    *bool             `json:"notSubjectToSection16"`
	NoSecuritiesOwned        *bool             `json:"noSecuritiesOwned"`
	Aff10b5One               *bool             `json:"aff10b5One"`
	Issuer                   Issuer            `json:"issuer"`
	ReportingOwners          []ReportingOwner  `json:"reportingOwner"`
	NonDerivativeTable       *NonDerivativeSet `json:"nonDerivativeTable"`
	DerivativeTable          *DerivativeSet    `json:"derivativeTable"`
	Footnotes                *Footnotes        `json:"footnotes"`
	Remarks                  *string           `json:"remarks"`
	Signatures               []OwnerSignature  `json:"ownerSignature"`
}

// Issuer identifies the company whose securities are reported.
type Issuer struct {
	IssuerCIK           *string `json:"issuerCik"`
	IssuerName          *string `json:"issuerName"`
	IssuerTradingSymbol *string `json:"issuerTradingSymbol"`
}

// ReportingOwner is one insider filing the form.
type ReportingOwner struct {
	ID           ReportingOwnerID            `json:"reportingOwnerId"`
	Address      *ReportingOwnerAddress      `json:"reportingOwnerAddress"`
	Relationship *ReportingOwnerRelationship `json:"reportingOwnerRelationship"`
}

// ReportingOwnerID carries the owner's key and name.
type ReportingOwnerID struct {
	CIK  *string `json:"rptOwnerCik"`
	CCC  *string `json:"rptOwnerCcc"`
	Name *string `json:"rptOwnerName"`
}

// ReportingOwnerAddress is the owner's mailing address.
type ReportingOwnerAddress struct {
	Street1          *string `json:"rptOwnerStreet1"`
	Street2          *string `json:"rptOwnerStreet2"`
	City             *string `json:"rptOwnerCity"`
	State            *string `json:"rptOwnerState"`
	ZipCode          *string `json:"rptOwnerZipCode"`
	StateDescription *string `json:"rptOwnerStateDescription"`
}

// ReportingOwnerRelationship describes the owner's relation to the issuer.
type ReportingOwnerRelationship struct {
	IsDirector        *bool   `json:"isDirector"`
	IsOfficer         *bool   `json:"isOfficer"`
	IsTenPercentOwner *bool   `json:"isTenPercentOwner"`
	IsOther           *bool   `json:"isOther"`
	OfficerTitle      *string `json:"officerTitle"`
	OtherText         *string `json:"otherText"`
}

// FootnoteRef points at a footnote by identifier.
type FootnoteRef struct {
	ID *string `json:"id"`
}

// Value is a form leaf carrying a value and optional footnote references.
type Value[T any] struct {
	Value     *T            `json:"value"`
	Footnotes []FootnoteRef `json:"footnoteId"`
}

// TransactionCoding classifies a transaction.
type TransactionCoding struct {
	FormType           *string       `json:"transactionFormType"`
	Code               *string       `json:"transactionCode"`
	EquitySwapInvolved *bool         `json:"equitySwapInvolved"`
	Footnotes          []FootnoteRef `json:"footnoteId"`
}

// TransactionAmounts holds the share count, price and direction.
type TransactionAmounts struct {
	Shares               *Value[float64] `json:"transactionShares"`
	TotalValue           *Value[float64] `json:"transactionTotalValue"`
	PricePerShare        *Value[float64] `json:"transactionPricePerShare"`
	AcquiredDisposedCode *Value[string]  `json:"transactionAcquiredDisposedCode"`
}

// PostTransactionAmounts holds ownership after the transaction.
type PostTransactionAmounts struct {
	SharesOwnedFollowing *Value[float64] `json:"sharesOwnedFollowingTransaction"`
	ValueOwnedFollowing  *Value[float64] `json:"valueOwnedFollowingTransaction"`
}

// OwnershipNature describes direct or indirect ownership.
type OwnershipNature struct {
	DirectOrIndirect *Value[string] `json:"directOrIndirectOwnership"`
	Nature           *Value[string] `json:"natureOfOwnership"`
}

// UnderlyingSecurity describes the security behind a derivative.
type UnderlyingSecurity struct {
	Title  *Value[string]  `json:"underlyingSecurityTitle"`
	Shares *Value[float64] `json:"underlyingSecurityShares"`
	Value  *Value[float64] `json:"underlyingSecurityValue"`
}

// NonDerivativeSet is table I of the form.
type NonDerivativeSet struct {
	Transactions []NonDerivativeTransaction `json:"nonDerivativeTransaction"`
	Holdings     []NonDerivativeHolding     `json:"nonDerivativeHolding"`
}

// NonDerivativeTransaction is one row of table I.
type NonDerivativeTransaction struct {
	SecurityTitle          *Value[string]          `json:"securityTitle"`
	TransactionDate        *Value[time.Time]       `json:"transactionDate"`
	DeemedExecutionDate    *Value[time.Time]       `json:"deemedExecutionDate"`
	Coding                 *TransactionCoding      `json:"transactionCoding"`
	Timeliness             *Value[string]          `json:"transactionTimeliness"`
	Amounts                *TransactionAmounts     `json:"transactionAmounts"`
	PostTransactionAmounts *PostTransactionAmounts `json:"postTransactionAmounts"`
	OwnershipNature        *OwnershipNature        `json:"ownershipNature"`
}

// NonDerivativeHolding is a holding row of table I.
type NonDerivativeHolding struct {
	SecurityTitle          *Value[string]          `json:"securityTitle"`
	PostTransactionAmounts *PostTransactionAmounts `json:"postTransactionAmounts"`
	OwnershipNature        *OwnershipNature        `json:"ownershipNature"`
}

// DerivativeSet is table II of the form.
type DerivativeSet struct {
	Transactions []DerivativeTransaction `json:"derivativeTransaction"`
	Holdings     []DerivativeHolding     `json:"derivativeHolding"`
}

// DerivativeTransaction is one row of table II.
type DerivativeTransaction struct {
	SecurityTitle             *Value[string]          `json:"securityTitle"`
	ConversionOrExercisePrice *Value[float64]         `json:"conversionOrExercisePrice"`
	TransactionDate           *Value[time.Time]       `json:"transactionDate"`
	DeemedExecutionDate       *Value[time.Time]       `json:"deemedExecutionDate"`
	Coding                    *TransactionCoding      `json:"transactionCoding"`
	Timeliness                *Value[string]          `json:"transactionTimeliness"`
	Amounts                   *TransactionAmounts     `json:"transactionAmounts"`
	ExerciseDate              *Value[time.Time]       `json:"exerciseDate"`
	ExpirationDate            *Value[time.Time]       `json:"expirationDate"`
	UnderlyingSecurity        *UnderlyingSecurity     `json:"underlyingSecurity"`
	PostTransactionAmounts    *PostTransactionAmounts `json:"postTransactionAmounts"`
	OwnershipNature           *OwnershipNature        `json:"ownershipNature"`
}

// DerivativeHolding is a holding row of table II.
type DerivativeHolding struct {
	SecurityTitle             *Value[string]          `json:"securityTitle"`
	ConversionOrExercisePrice *Value[float64]         `json:"conversionOrExercisePrice"`
	ExerciseDate              *Value[time.Time]       `json:"exerciseDate"`
	ExpirationDate            *Value[time.Time]       `json:"expirationDate"`
	UnderlyingSecurity        *UnderlyingSecurity     `json:"underlyingSecurity"`
	PostTransactionAmounts    *PostTransactionAmounts `json:"postTransactionAmounts"`
	OwnershipNature           *OwnershipNature        `json:"ownershipNature"`
}

// Footnotes is the list of footnotes attached to the form.
type Footnotes struct {
	Footnote []Footnote `json:"footnote"`
}

// Footnote is one numbered footnote.
type Footnote struct {
	ID   *string `json:"id"`
	Text *string `json:"text"`
}

// OwnerSignature is one signature block.
type OwnerSignature struct {
	Name *string    `json:"signatureName"`
	Date *time.Time `json:"signatureDate"`
}
