package ownership

// FieldKind is the coercion applied to a field.
type FieldKind int

// Field kinds. KindDefault leaves the value as decoded.
const (
	KindDefault FieldKind = iota
	KindArray
	KindDate
	KindBool
	KindFloat
)

// FieldRule maps a dotted path suffix to a kind. A rule matches a path
// when the path equals the suffix or ends with "." + suffix.
type FieldRule struct {
	Suffix string
	Kind   FieldKind
}

// Schema is the static coercion table for ownership documents. Paths are
// relative to the <ownershipDocument> element.
var Schema = []FieldRule{
	// Lists that must be arrays even with a single occurrence.
	{"reportingOwner", KindArray},
	{"ownerSignature", KindArray},
	{"nonDerivativeTable.nonDerivativeTransaction", KindArray},
	{"nonDerivativeTable.nonDerivativeHolding", KindArray},
	{"derivativeTable.derivativeTransaction", KindArray},
	{"derivativeTable.derivativeHolding", KindArray},
	{"footnotes.footnote", KindArray},
	{"footnoteId", KindArray},

	// Calendar dates.
	{"periodOfReport", KindDate},
	{"dateOfOriginalSubmission", KindDate},
	{"ownerSignature.signatureDate", KindDate},
	{"transactionDate.value", KindDate},
	{"deemedExecutionDate.value", KindDate},
	{"exerciseDate.value", KindDate},
	{"expirationDate.value", KindDate},

	// Flags.
	{"notSubjectToSection16", KindBool},
	{"noSecuritiesOwned", KindBool},
	{"aff10b5One", KindBool},
	{"reportingOwnerRelationship.isDirector", KindBool},
	{"reportingOwnerRelationship.isOfficer", KindBool},
	{"reportingOwnerRelationship.isTenPercentOwner", KindBool},
	{"reportingOwnerRelationship.isOther", KindBool},
	{"transactionCoding.equitySwapInvolved", KindBool},

	// Amounts.
	{"conversionOrExercisePrice.value", KindFloat},
	{"transactionShares.value", KindFloat},
	{"transactionTotalValue.value", KindFloat},
	{"transactionPricePerShare.value", KindFloat},
	{"sharesOwnedFollowingTransaction.value", KindFloat},
	{"valueOwnedFollowingTransaction.value", KindFloat},
	{"underlyingSecurityShares.value", KindFloat},
	{"underlyingSecurityValue.value", KindFloat},
}

// KindOf returns the kind of the first rule matching path.
func KindOf(rules []FieldRule, path string) FieldKind {
	for _, rule := range rules {
		if matchSuffix(path, rule.Suffix) {
			return rule.Kind
		}
	}
	return KindDefault
}

func matchSuffix(path, suffix string) bool {
	if len(path) < len(suffix) || path[len(path)-len(suffix):] != suffix {
		return false
	}
	return len(path) == len(suffix) || path[len(path)-len(suffix)-1] == '.'
}
