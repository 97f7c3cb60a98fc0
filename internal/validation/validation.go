package validation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/testforge/suite-service/internal/domain"
)

const (
	MaxNameLength        = 200
	MaxDescriptionLength = 5000
	MaxTagLength         = 50
	MaxTags              = 20
	MaxTestCases         = 200
	MaxIDLength          = 64
)

var (
	// idRegex allows only alphanumeric, hyphens and underscores
	idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// tagRegex for validating tags
	tagRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

// ValidateID validates a suite or case identifier used in a URL path
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}

	if len(id) > MaxIDLength {
		return fmt.Errorf("id too long: maximum %d characters", MaxIDLength)
	}

	if !idRegex.MatchString(id) {
		return fmt.Errorf("invalid id: only alphanumeric characters, hyphens, and underscores allowed")
	}

	return nil
}

// ValidateName validates a suite or case name
func ValidateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s is required", field)
	}

	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%s too long: maximum %d characters", field, MaxNameLength)
	}

	if strings.ContainsAny(name, "\x00\r\n") {
		return fmt.Errorf("%s contains invalid characters", field)
	}

	return nil
}

// ValidateDescription validates a free-text description
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fmt.Errorf("description too long: maximum %d characters", MaxDescriptionLength)
	}

	if strings.ContainsRune(description, 0) {
		return fmt.Errorf("description contains invalid characters")
	}

	return nil
}

// ValidateTags validates a tag list
func ValidateTags(tags []string) error {
	if len(tags) > MaxTags {
		return fmt.Errorf("too many tags: maximum %d", MaxTags)
	}

	for _, tag := range tags {
		if tag == "" {
			return fmt.Errorf("tag cannot be empty")
		}
		if len(tag) > MaxTagLength {
			return fmt.Errorf("tag too long: maximum %d characters", MaxTagLength)
		}
		if !tagRegex.MatchString(tag) {
			return fmt.Errorf("invalid tag %q: only alphanumeric characters, hyphens, underscores, and dots allowed", tag)
		}
	}

	return nil
}

// ValidateSuite validates a suite received from a client, including its
// embedded cases
func ValidateSuite(s domain.TestSuite) error {
	if err := ValidateName("test suite name", s.Name); err != nil {
		return err
	}
	if err := ValidateDescription(s.Description); err != nil {
		return err
	}
	if _, err := domain.ParseEnvironment(string(s.Environment)); err != nil {
		return err
	}
	if _, err := domain.ParsePriority(string(s.Priority)); err != nil {
		return err
	}
	if err := ValidateTags(s.Tags); err != nil {
		return err
	}

	if len(s.TestCases) > MaxTestCases {
		return fmt.Errorf("too many test cases: maximum %d", MaxTestCases)
	}
	for _, tc := range s.TestCases {
		if err := ValidateCase(tc); err != nil {
			return err
		}
	}

	return nil
}

// ValidateCase validates a test case received from a client
func ValidateCase(c domain.TestCase) error {
	if err := ValidateName("test case name", c.Name); err != nil {
		return err
	}
	if err := ValidateDescription(c.Description); err != nil {
		return err
	}
	if c.Priority != "" {
		if _, err := domain.ParsePriority(string(c.Priority)); err != nil {
			return err
		}
	}
	if _, err := domain.ParseStatus(string(c.Status)); err != nil {
		return err
	}
	return ValidateTags(c.Tags)
}

// ValidateJSONDepth validates that JSON data doesn't exceed maximum nesting depth
func ValidateJSONDepth(data interface{}, maxDepth int) error {
	return validateDepthRecursive(data, 0, maxDepth)
}

// validateDepthRecursive recursively checks the depth of nested structures
func validateDepthRecursive(data interface{}, currentDepth, maxDepth int) error {
	if currentDepth > maxDepth {
		return fmt.Errorf("JSON exceeds maximum nesting depth of %d", maxDepth)
	}

	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := validateDepthRecursive(iter.Value().Interface(), currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := validateDepthRecursive(v.Index(i).Interface(), currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	case reflect.Interface, reflect.Ptr:
		if !v.IsNil() {
			return validateDepthRecursive(v.Elem().Interface(), currentDepth, maxDepth)
		}
	}

	return nil
}

// ValidateJSONBody checks size, well-formedness and nesting of a request
// body before it is decoded into a typed value
func ValidateJSONBody(body []byte, maxSize, maxDepth int) error {
	if len(body) > maxSize {
		return fmt.Errorf("JSON data too large: %d bytes (max: %d)", len(body), maxSize)
	}

	var generic interface{}
	if err := json.Unmarshal(body, &generic); err != nil {
		return fmt.Errorf("invalid JSON format")
	}

	return ValidateJSONDepth(generic, maxDepth)
}
