package domain

import (
	"strings"

	dErrors "kitmatch/pkg/domain-errors"
)

// KitType is the closed set of kits a donor can offer and a receiver can ask for.
type KitType string

const (
	KitBasic           KitType = "KIT_BASICO"
	KitBasicAllergy    KitType = "KIT_BASICO_ALERGICA"
	KitComplete        KitType = "KIT_COMPLETO"
	KitCompleteAllergy KitType = "KIT_COMPLETO_ALERGICA"
)

var kitLabels = map[KitType]string{
	KitBasic:           "Kit Básico",
	KitBasicAllergy:    "Kit Básico Alérgica",
	KitComplete:        "Kit Completo",
	KitCompleteAllergy: "Kit Completo Alérgica",
}

var kitAliases = map[string]KitType{
	"basic":            KitBasic,
	"basic-allergy":    KitBasicAllergy,
	"complete":         KitComplete,
	"complete-allergy": KitCompleteAllergy,
}

// AllKitTypes lists kit types in display order.
func AllKitTypes() []KitType {
	return []KitType{KitBasic, KitBasicAllergy, KitComplete, KitCompleteAllergy}
}

// ParseKitType accepts the canonical upper-case value or a lower-case alias.
func ParseKitType(s string) (KitType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "kit type is required")
	}
	if k, ok := kitAliases[strings.ToLower(s)]; ok {
		return k, nil
	}
	k := KitType(strings.ToUpper(s))
	if !k.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown kit type: "+s)
	}
	return k, nil
}

func (k KitType) IsValid() bool {
	_, ok := kitLabels[k]
	return ok
}

// Label is the human-readable name used in notification messages.
func (k KitType) Label() string {
	if l, ok := kitLabels[k]; ok {
		return l
	}
	return string(k)
}

func (k KitType) String() string {
	return string(k)
}
