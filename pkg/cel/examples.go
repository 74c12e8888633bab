package cel

// FilterExpressionExamples are served by the catalog API as authoring hints
// for trigger filters.
var FilterExpressionExamples = map[string]string{
	"min_priority":       `rule.priority >= 1`,
	"priority_band":      `rule.priority >= 1 && rule.priority <= 10`,
	"by_tag":             `"vip" in rule.tags`,
	"by_any_tag":         `rule.tags.exists(t, t.startsWith("billing."))`,
	"by_event_type":      `"order.created" in rule.event_types`,
	"name_prefix":        `rule.name.startsWith("fraud-")`,
	"by_customer":        `rule.customer_id == "acme"`,
	"combined":           `rule.priority < 5 && "vip" in rule.tags`,
	"explicit_id_subset": `rule.id in ["r-1", "r-2"]`,
}
