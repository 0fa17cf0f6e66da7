package chain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

func TestParamsFor(t *testing.T) {
	p, err := ParamsFor(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.ChainID)
	assert.Equal(t, common.HexToAddress("0x881d40237659c251811cec9c364ef91dc08d300c"), p.Spender)
	assert.False(t, p.HasL1Fee)

	p, err = ParamsFor(10)
	require.NoError(t, err)
	assert.True(t, p.HasL1Fee)

	_, err = ParamsFor(31337)
	assert.ErrorIs(t, err, domain.ErrUnsupportedChain)
}

func TestIsNativeToken(t *testing.T) {
	assert.True(t, IsNativeToken(common.Address{}))
	assert.False(t, IsNativeToken(common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")))
}

func TestHasL1Fee(t *testing.T) {
	assert.False(t, HasL1Fee(1))
	assert.True(t, HasL1Fee(10))
	assert.True(t, HasL1Fee(8453))
	assert.False(t, HasL1Fee(31337))
}

func TestEncodeGetL1Fee(t *testing.T) {
	txData := []byte{0xde, 0xad, 0xbe, 0xef}
	encoded := encodeGetL1Fee(txData)

	// selector + offset word + length word + one padded data word
	require.Len(t, encoded, 4+32+32+32)
	assert.Equal(t, getL1FeeSelector, encoded[:4])
	assert.Equal(t, common.LeftPadBytes([]byte{32}, 32), encoded[4:36])
	assert.Equal(t, common.LeftPadBytes([]byte{4}, 32), encoded[36:68])
	assert.Equal(t, txData, encoded[68:72])
	assert.Equal(t, make([]byte, 28), encoded[72:])
}

func TestEncodeGetL1FeeWordAlignedData(t *testing.T) {
	txData := make([]byte, 64)
	encoded := encodeGetL1Fee(txData)
	assert.Len(t, encoded, 4+32+32+64)
}

func TestEncodeGetL1FeeEmptyData(t *testing.T) {
	encoded := encodeGetL1Fee(nil)
	require.Len(t, encoded, 4+32+32)
	assert.Equal(t, common.LeftPadBytes(nil, 32), encoded[36:68])
}
