package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalTask(t *testing.T) {
	task, err := MarshalTask("promotion:redemption_rejected", map[string]string{"order_id": "o-1"})
	require.NoError(t, err)

	assert.Equal(t, "promotion:redemption_rejected", task.Type())
	var got map[string]string
	require.NoError(t, json.Unmarshal(task.Payload(), &got))
	assert.Equal(t, "o-1", got["order_id"])
}

func TestMarshalTask_Unencodable(t *testing.T) {
	_, err := MarshalTask("x", make(chan int))
	assert.Error(t, err)
}
