package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruleflow/internal/condition"
)

func TestInlineAction(t *testing.T) {
	prog := condition.MustParse(`WHEN a == 1
THEN send_email("{customer.email}", "Welcome", body="Hi {customer.name}"),
     update_record("orders", where_order_id="{order.id}", status="flagged", upsert=true)
ELSE notify("nothing matched", channel="ops")`)

	email, err := InlineAction("r1", BranchThen, 0, prog.Then[0])
	require.NoError(t, err)
	assert.Equal(t, "r1#then[0]", email.ID)
	assert.Equal(t, ActionEmail, email.Type)
	assert.Equal(t, StatusActive, email.Status)
	cfg, err := email.TypedConfig()
	require.NoError(t, err)
	assert.Equal(t, &EmailConfig{To: "{customer.email}", Subject: "Welcome", Body: "Hi {customer.name}"}, cfg)

	db, err := InlineAction("r1", BranchThen, 1, prog.Then[1])
	require.NoError(t, err)
	cfg, err = db.TypedConfig()
	require.NoError(t, err)
	assert.Equal(t, &DatabaseConfig{
		Collection: "orders",
		Filter:     map[string]interface{}{"order_id": "{order.id}"},
		Set:        map[string]interface{}{"status": "flagged"},
		Upsert:     true,
	}, cfg)

	notify, err := InlineAction("r1", BranchElse, 0, prog.Else[0])
	require.NoError(t, err)
	assert.Equal(t, "r1#else[0]", notify.ID)
	cfg, err = notify.TypedConfig()
	require.NoError(t, err)
	assert.Equal(t, &NotificationConfig{Channel: "ops", Message: "nothing matched"}, cfg)
}

func TestInlineAction_Errors(t *testing.T) {
	prog := condition.MustParse(`WHEN a == 1 THEN launch_rocket(), send_sms("+1", "hi", "extra"), send_sms(to="+1")`)

	_, err := InlineAction("r", BranchThen, 0, prog.Then[0])
	assert.Error(t, err)

	_, err = InlineAction("r", BranchThen, 1, prog.Then[1])
	assert.Error(t, err)

	// Well-formed call with an invalid config keeps the decode error for dispatch.
	sms, err := InlineAction("r", BranchThen, 2, prog.Then[2])
	require.NoError(t, err)
	_, err = sms.TypedConfig()
	assert.Error(t, err)
}
