package worker

import (
	"strconv"

	"github.com/n0rdy/leadflow/common"
	"github.com/n0rdy/leadflow/transport"
	"github.com/rs/zerolog"
)

// RetryCount reads the retry counter a message carries. A missing attribute means 0.
// So does an unparsable or negative one: it is logged, as it may point to a corrupted or tampered message.
func RetryCount(attrs map[string]transport.Attribute, logger zerolog.Logger) int {
	attr, ok := attrs[common.RetryCountAttribute]
	if !ok || attr.StringValue == "" {
		return 0
	}

	count, err := strconv.Atoi(attr.StringValue)
	if err != nil || count < 0 {
		logger.Warn().Str("retry_count", attr.StringValue).Msg("invalid retry count attribute, treating as 0")
		return 0
	}
	return count
}

// WithRetryCount copies attrs with the retry counter set to count.
func WithRetryCount(attrs map[string]transport.Attribute, count int) map[string]transport.Attribute {
	updated := transport.CopyAttributes(attrs)
	updated[common.RetryCountAttribute] = transport.Attribute{
		DataType:    common.NumberDataType,
		StringValue: strconv.Itoa(count),
	}
	return updated
}

func ShouldFail(attrs map[string]transport.Attribute) bool {
	return attrs[common.ShouldFailAttribute].StringValue == "true"
}
