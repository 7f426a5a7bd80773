package enums

import "fmt"

// CouponKind selects how a coupon's value is applied.
type CouponKind string

const (
	CouponKindPercentage CouponKind = "percentage"
	CouponKindFlat       CouponKind = "flat"
)

var validCouponKinds = []CouponKind{CouponKindPercentage, CouponKindFlat}

func (k CouponKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known CouponKind.
func (k CouponKind) IsValid() bool {
	for _, candidate := range validCouponKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseCouponKind converts raw input into a CouponKind.
func ParseCouponKind(value string) (CouponKind, error) {
	for _, candidate := range validCouponKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon kind %q", value)
}

// CouponScope restricts which cart lines make a coupon eligible.
type CouponScope string

const (
	CouponScopeAll         CouponScope = "all"
	CouponScopeCategorySet CouponScope = "category_set"
	CouponScopeProductSet  CouponScope = "product_set"
)

var validCouponScopes = []CouponScope{CouponScopeAll, CouponScopeCategorySet, CouponScopeProductSet}

func (s CouponScope) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CouponScope.
func (s CouponScope) IsValid() bool {
	for _, candidate := range validCouponScopes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCouponScope converts raw input into a CouponScope.
func ParseCouponScope(value string) (CouponScope, error) {
	for _, candidate := range validCouponScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon scope %q", value)
}
