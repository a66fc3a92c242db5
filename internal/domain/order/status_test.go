package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want error
	}{
		{"待确认→已确认", StatusPending, StatusConfirmed, nil},
		{"跳过中间状态", StatusPending, StatusShipped, nil},
		{"相同状态", StatusConfirmed, StatusConfirmed, nil},
		{"已发货→已送达", StatusShipped, StatusDelivered, nil},
		{"已发货→已确认(回退)", StatusShipped, StatusConfirmed, ErrBackwardTransition},
		{"处理中→待确认(回退)", StatusProcessing, StatusPending, ErrBackwardTransition},
		{"已发货→已取消", StatusShipped, StatusCancelled, nil},
		{"待确认→已取消", StatusPending, StatusCancelled, nil},
		{"已取消→已取消", StatusCancelled, StatusCancelled, ErrAlreadyCancelled},
		{"已取消→待确认", StatusCancelled, StatusPending, ErrTerminalStatus},
		{"已取消→已送达", StatusCancelled, StatusDelivered, ErrTerminalStatus},
		{"已送达→已取消", StatusDelivered, StatusCancelled, ErrTerminalStatus},
		{"已送达→已送达", StatusDelivered, StatusDelivered, ErrTerminalStatus},
		{"已送达→已确认(回退)", StatusDelivered, StatusConfirmed, ErrBackwardTransition},
		{"已送达→待确认(回退)", StatusDelivered, StatusPending, ErrBackwardTransition},
		{"未知状态", StatusPending, Status(42), ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckTransition_ErrorDetails(t *testing.T) {
	err := CheckTransition(StatusShipped, StatusConfirmed)

	var backward *BackwardTransitionError
	require.ErrorAs(t, err, &backward)
	assert.Equal(t, StatusShipped, backward.From)
	assert.Equal(t, apperrors.ErrCodeBackwardTransition, apperrors.GetAppError(err).Code)
	assert.Equal(t, "CONFIRMED", apperrors.GetDetails(err)["to"])
}

func TestStatus_AllowedFrom(t *testing.T) {
	assert.Equal(t,
		[]Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped},
		StatusCancelled.AllowedFrom())
	assert.Equal(t,
		[]Status{StatusPending, StatusConfirmed, StatusProcessing},
		StatusProcessing.AllowedFrom())
	assert.Equal(t, []Status{StatusPending}, StatusPending.AllowedFrom())
}

func TestStatus_NextStatuses(t *testing.T) {
	assert.Equal(t, []Status{StatusDelivered, StatusCancelled}, StatusShipped.NextStatuses())
	assert.Empty(t, StatusDelivered.NextStatuses())
	assert.Empty(t, StatusCancelled.NextStatuses())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" shipped ")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, s)
	assert.Equal(t, "SHIPPED", s.String())
	assert.Equal(t, "已发货", s.Label())

	_, err = ParseStatus("PAID")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	assert.Equal(t, "UNKNOWN", Status(0).String())
	assert.True(t, StatusDelivered.IsTerminal())
	assert.False(t, StatusShipped.IsTerminal())
}
