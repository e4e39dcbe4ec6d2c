package application

import (
	"fmt"
	"strings"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
)

// DefaultClassifierRules is the built-in ordered keyword table. Order matters:
// water is checked before common fee, then electricity, fine, insurance.
func DefaultClassifierRules() []ClassifierRule {
	return []ClassifierRule{
		{Pattern: "น้ำ", Category: string(debtorimport.CategoryWater)},
		{Pattern: "water", Category: string(debtorimport.CategoryWater)},
		{Pattern: "ส่วนกลาง", Category: string(debtorimport.CategoryCommonFee)},
		{Pattern: "common", Category: string(debtorimport.CategoryCommonFee)},
		{Pattern: "maintenance", Category: string(debtorimport.CategoryCommonFee)},
		{Pattern: "ไฟ", Category: string(debtorimport.CategoryElectricity)},
		{Pattern: "electric", Category: string(debtorimport.CategoryElectricity)},
		{Pattern: "ปรับ", Category: string(debtorimport.CategoryFine)},
		{Pattern: "fine", Category: string(debtorimport.CategoryFine)},
		{Pattern: "penalty", Category: string(debtorimport.CategoryFine)},
		{Pattern: "ประกัน", Category: string(debtorimport.CategoryInsurance)},
		{Pattern: "insurance", Category: string(debtorimport.CategoryInsurance)},
	}
}

type classifierRule struct {
	pattern  string
	category debtorimport.Category
}

// Classifier maps service descriptions to accounting categories using an
// ordered substring table; the first match wins.
type Classifier struct {
	rules []classifierRule
}

// NewClassifier compiles rules. An empty table uses DefaultClassifierRules.
func NewClassifier(rules []ClassifierRule) (*Classifier, error) {
	if len(rules) == 0 {
		rules = DefaultClassifierRules()
	}
	compiled := make([]classifierRule, 0, len(rules))
	for i, rule := range rules {
		category, ok := debtorimport.ParseCategory(rule.Category)
		if !ok {
			return nil, fmt.Errorf("classifier: rule %d: unknown category %q", i, rule.Category)
		}
		pattern := strings.ToLower(strings.TrimSpace(rule.Pattern))
		if pattern == "" {
			return nil, fmt.Errorf("classifier: rule %d: empty pattern", i)
		}
		compiled = append(compiled, classifierRule{pattern: pattern, category: category})
	}
	return &Classifier{rules: compiled}, nil
}

// Classify returns the category of a service name, other when nothing matches.
func (c *Classifier) Classify(serviceName string) debtorimport.Category {
	text := strings.ToLower(serviceName)
	for _, rule := range c.rules {
		if strings.Contains(text, rule.pattern) {
			return rule.category
		}
	}
	return debtorimport.CategoryOther
}
