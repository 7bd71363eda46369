package worker

import (
	"testing"

	"github.com/n0rdy/leadflow/common"
	"github.com/n0rdy/leadflow/transport"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRetryCount(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]transport.Attribute
		want  int
	}{
		{name: "no attributes", attrs: nil, want: 0},
		{name: "missing attribute", attrs: map[string]transport.Attribute{common.EventTypeAttribute: {StringValue: common.LeadNewEventType}}, want: 0},
		{name: "empty value", attrs: map[string]transport.Attribute{common.RetryCountAttribute: {StringValue: ""}}, want: 0},
		{name: "valid", attrs: map[string]transport.Attribute{common.RetryCountAttribute: {StringValue: "2"}}, want: 2},
		{name: "above max", attrs: map[string]transport.Attribute{common.RetryCountAttribute: {StringValue: "7"}}, want: 7},
		{name: "not a number", attrs: map[string]transport.Attribute{common.RetryCountAttribute: {StringValue: "two"}}, want: 0},
		{name: "negative", attrs: map[string]transport.Attribute{common.RetryCountAttribute: {StringValue: "-1"}}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RetryCount(tt.attrs, zerolog.Nop()))
		})
	}
}

func TestRetryCount_LogsInvalidValue(t *testing.T) {
	logs := &lockedBuffer{}
	RetryCount(map[string]transport.Attribute{common.RetryCountAttribute: {StringValue: "x"}}, zerolog.New(logs))
	assert.Contains(t, logs.String(), "invalid retry count attribute")
}

func TestWithRetryCount_DoesNotMutateInput(t *testing.T) {
	original := map[string]transport.Attribute{
		common.RetryCountAttribute: {DataType: common.NumberDataType, StringValue: "1"},
		common.ShouldFailAttribute: {DataType: common.StringDataType, StringValue: "true"},
	}

	updated := WithRetryCount(original, 2)

	assert.Equal(t, "1", original[common.RetryCountAttribute].StringValue)
	assert.Equal(t, "2", updated[common.RetryCountAttribute].StringValue)
	assert.Equal(t, "true", updated[common.ShouldFailAttribute].StringValue)
}

func TestShouldFail(t *testing.T) {
	assert.True(t, ShouldFail(map[string]transport.Attribute{common.ShouldFailAttribute: {StringValue: "true"}}))
	assert.False(t, ShouldFail(map[string]transport.Attribute{common.ShouldFailAttribute: {StringValue: "false"}}))
	assert.False(t, ShouldFail(map[string]transport.Attribute{common.ShouldFailAttribute: {StringValue: "TRUE"}}))
	assert.False(t, ShouldFail(nil))
}
