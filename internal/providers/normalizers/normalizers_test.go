package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rapidaai/translate/internal/commons"
)

func TestCurrencyNormalizerSpellsOutDollarsAndCents(t *testing.T) {
	n := NewCurrencyNormalizer(commons.NewTestLogger())
	assert.Equal(t, "The price is ten dollars and fifty cents", n.Normalize("The price is $10.50"))
}

func TestCurrencyNormalizerLeavesUnmatchedAmountsUntouched(t *testing.T) {
	n := NewCurrencyNormalizer(commons.NewTestLogger())
	assert.Equal(t, "Price is $50", n.Normalize("Price is $50"))
}

func TestDateNormalizerExpandsISODate(t *testing.T) {
	n := NewDateNormalizer(commons.NewTestLogger())
	assert.Equal(t, "Meeting on January 15, 2024", n.Normalize("Meeting on 2024-01-15"))
}

func TestTimeNormalizerConvertsToTwelveHourClock(t *testing.T) {
	n := NewTimeNormalizer(commons.NewTestLogger())
	assert.Equal(t, "Call at 2:30 PM", n.Normalize("Call at 14:30"))
}

func TestTimeNormalizerHandlesMidnightAndNoon(t *testing.T) {
	n := NewTimeNormalizer(commons.NewTestLogger())
	assert.Equal(t, "Event at 12:00 AM", n.Normalize("Event at 00:00"))
	assert.Equal(t, "Meeting at 12:00 PM", n.Normalize("Meeting at 12:00"))
}

func TestNumberToWordNormalizerSpellsOutTwoDigitNumbers(t *testing.T) {
	n := NewNumberToWordNormalizer(commons.NewTestLogger())
	assert.Equal(t, "He is twenty years old", n.Normalize("He is 20 years old"))
}

func TestSymbolNormalizerExpandsPercentAndDegree(t *testing.T) {
	n := NewSymbolNormalizer(commons.NewTestLogger())
	result := n.Normalize("Growth is 25% at 25℃")
	assert.Contains(t, result, "percent")
	assert.Contains(t, result, "degrees celsius")
}

func TestAddressNormalizerExpandsStreetAbbreviations(t *testing.T) {
	n := NewAddressNormalizer(commons.NewTestLogger())
	assert.Equal(t, "123 Main street", n.Normalize("123 Main St"))
}

func TestUrlNormalizerSpellsOutDots(t *testing.T) {
	n := NewUrlNormalizer(commons.NewTestLogger())
	assert.Equal(t, "Check www dot google dot com", n.Normalize("Check www.google.com"))
}

func TestAbbreviationNormalizerExpandsTitles(t *testing.T) {
	n := NewAbbreviationNormalizer(commons.NewTestLogger())
	assert.Equal(t, "doctor Smith is here", n.Normalize("Dr. Smith is here"))
}

func TestBuildPipelineSkipsUnknownNames(t *testing.T) {
	pipeline := BuildPipeline(commons.NewTestLogger(), []string{"currency", "not-a-real-normalizer", "symbol"})
	assert.Len(t, pipeline, 2)
}

func TestApplyRunsEveryNormalizerInOrder(t *testing.T) {
	pipeline := []Normalizer{NewCurrencyNormalizer(commons.NewTestLogger()), NewSymbolNormalizer(commons.NewTestLogger())}
	result := Apply(pipeline, "Cost is $5.00 at 50%")
	assert.Equal(t, "Cost is five dollars and zero cents at 50 percent", result)
}
