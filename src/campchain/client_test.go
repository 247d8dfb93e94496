package campchain

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignManagerABIParses(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(campaignManagerABI))
	require.NoError(t, err)

	for _, name := range []string{
		"createCampaign",
		"getCampaignBasic",
		"getCampaignCreatorAndWallets",
		"getParticipants",
		"markAttendance",
	} {
		_, ok := parsed.Methods[name]
		assert.True(t, ok, "method %s missing from abi", name)
	}
	assert.Len(t, parsed.Methods["getCampaignBasic"].Outputs, 11)
}

func TestIsRevert(t *testing.T) {
	assert.True(t, isRevert(fmt.Errorf("execution reverted: campaign does not exist")))
	assert.True(t, isRevert(fmt.Errorf("call: execution reverted")))

	assert.False(t, isRevert(nil))
	assert.False(t, isRevert(fmt.Errorf("connection refused")))
	assert.False(t, isRevert(fmt.Errorf("context deadline exceeded")))
}
