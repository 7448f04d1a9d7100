package vgg19

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsFileSelection(t *testing.T) {
	const base = "https://github.com/fchollet/deep-learning-models/releases/download/v0.1/"
	tests := []struct {
		includeTop bool
		ordering   KernelOrdering
		wantFile   string
	}{
		{true, KernelsChannelsLast, "vgg19_weights_tf_dim_ordering_tf_kernels.h5"},
		{true, KernelsChannelsFirst, "vgg19_weights_th_dim_ordering_th_kernels.h5"},
		{false, KernelsChannelsLast, "vgg19_weights_tf_dim_ordering_tf_kernels_notop.h5"},
		{false, KernelsChannelsFirst, "vgg19_weights_th_dim_ordering_th_kernels_notop.h5"},
	}
	for _, test := range tests {
		fileName, url := WeightsFile(test.includeTop, test.ordering)
		assert.Equal(t, test.wantFile, fileName)
		assert.Equal(t, base+test.wantFile, url)
	}
}

func TestUnpackedWeightsLayout(t *testing.T) {
	// The four weight variants must unpack to distinct subdirectories, so they
	// can share one cache directory.
	seen := make(map[string]bool)
	for _, includeTop := range []bool{true, false} {
		for _, ordering := range []KernelOrdering{KernelsChannelsLast, KernelsChannelsFirst} {
			dir := unpackedWeightsDir(includeTop, ordering)
			require.Falsef(t, seen[dir], "unpacked directory %q reused", dir)
			seen[dir] = true
		}
	}

	assert.Equal(t, "/cache/gomlx_weights_tf_kernels_notop/block1_conv1/block1_conv1_W",
		PathToTensor("/cache", false, KernelsChannelsLast, "block1_conv1/block1_conv1_W"))
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "none", WeightsNone.String())
	assert.Equal(t, "imagenet", WeightsImageNet.String())
	assert.Equal(t, "Weights(7)", Weights(7).String())
	assert.Equal(t, "channels-last", KernelsChannelsLast.String())
	assert.Equal(t, "channels-first", KernelsChannelsFirst.String())
}
