package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/followup/core"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)

	actor := core.Actor{ID: "hds", Username: "HDS"}
	logger.Warn("attendance import: 2 rows skipped", "enrollment is empty", actor)

	assert.Equal(t, "attendance import: 2 rows skipped\nenrollment is empty\n", buf.String())
	assert.Equal(t, []interface{}{"msg", map[string]interface{}{"week": 3}},
		logger.prepare("msg", []interface{}{actor, map[string]interface{}{"week": 3}, core.Actor{ID: "other"}}))
}
