package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCamelToUnderscore(t *testing.T) {
	var maps = map[string]string{
		"":                          "",
		"x":                         "x",
		"X":                         "x",
		"userRestrictions":          "user_restrictions",
		"ThisIsATest":               "this_is_a_test",
		"PFAndESI":                  "pf_and_esi",
		"AbcAndJkl":                 "abc_and_jkl",
		"EmployeeID":                "employee_id",
		"SKU_ID":                    "sku_id",
		"FieldX":                    "field_x",
		"HTTPAndSMTP":               "http_and_smtp",
		"HTTPServerHandlerForURLID": "http_server_handler_for_url_id",
		"UUID":                      "uuid",
		"HTTPURL":                   "http_url",
		"HTTP_URL":                  "http_url",
		"SHA256Hash":                "sha256_hash",
		"SHA256HASH":                "sha256_hash",
		"CreditLimit":               "credit_limit",
		"ThisIsActuallyATestSoWeMayBeAbleToUseThisCodeInAutomapPackageAlsoIdCanBeUsedAtTheEndAsID": "this_is_actually_a_test_so_we_may_be_able_to_use_this_code_in_automap_package_also_id_can_be_used_at_the_end_as_id",
	}

	for key, value := range maps {
		if CamelToUnderscore(key) != value {
			t.Errorf("%v CamelToUnderscore should equal %v, but got %v", key, value, CamelToUnderscore(key))
		}
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "creditlimit", Normalize("CREDIT_LIMIT"))
	assert.Equal(t, Normalize("creditLimit"), Normalize("credit_limit"))
	assert.Equal(t, "", Normalize("__"))
}

func TestPluralize(t *testing.T) {
	tests := map[string][]string{
		"Customer": {"Customers"},
		"Company":  {"Companies"},
		"Box":      {"Boxes"},
		"Person":   {"People", "Persons"},
		"Key":      {"Keys"},
		"":         nil,
	}
	for name, want := range tests {
		assert.Equal(t, want, Pluralize(name), name)
	}
}

func TestPluralRuleKeepsShoutingCase(t *testing.T) {
	assert.Equal(t, "ORDERS", pluralRule("ORDER"))
	assert.Equal(t, "COMPANIES", pluralRule("COMPANY"))
	assert.Equal(t, "Matches", pluralRule("Match"))
	assert.Equal(t, "Days", pluralRule("Day"))
}

func TestCaseVariants(t *testing.T) {
	assert.Equal(t, []string{"Customer", "CUSTOMER", "customer"}, CaseVariants("Customer"))
	assert.Equal(t, []string{"orders", "ORDERS"}, CaseVariants("orders"))
	assert.Equal(t, []string{"42"}, CaseVariants("42"))
}

func TestStripAffixes(t *testing.T) {
	prefixes, suffixes := []string{"tbl_", "t_"}, []string{"_v", "_tab"}

	assert.Equal(t, "customer", StripAffixes("TBL_customer_TAB", prefixes, suffixes))
	assert.Equal(t, "order", StripAffixes("t_order", prefixes, suffixes))
	// only the first matching prefix is removed
	assert.Equal(t, "t_x", StripAffixes("tbl_t_x", prefixes, suffixes))
	// an affix is never the whole name
	assert.Equal(t, "tbl_", StripAffixes("tbl_", prefixes, suffixes))
	assert.Equal(t, "plain", StripAffixes("plain", nil, nil))
}
