package vgg19

import (
	"testing"

	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gomlx/types/tensors/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelTransformTable(t *testing.T) {
	tests := []struct {
		name        string
		ordering    KernelOrdering
		graphConfig images.ChannelsAxisConfig
		wantPerm    [4]int
		wantFlip    bool
		wantIdent   bool
	}{
		{"tf file, channels-last graph", KernelsChannelsLast, images.ChannelsLast, [4]int{0, 1, 2, 3}, false, true},
		{"tf file, channels-first graph", KernelsChannelsLast, images.ChannelsFirst, [4]int{2, 0, 1, 3}, false, false},
		{"th file, channels-last graph", KernelsChannelsFirst, images.ChannelsLast, [4]int{2, 3, 1, 0}, true, false},
		{"th file, channels-first graph", KernelsChannelsFirst, images.ChannelsFirst, [4]int{1, 2, 3, 0}, true, false},
	}
	for _, test := range tests {
		perm, flip, identity := kernelTransform(test.ordering, test.graphConfig)
		assert.Equal(t, test.wantPerm, perm, test.name)
		assert.Equal(t, test.wantFlip, flip, test.name)
		assert.Equal(t, test.wantIdent, identity, test.name)
	}
}

// thKernelFromNative builds the channels-first ("th") file representation of a
// kernel given in the native channels-last layout [kh, kw, in, out]: axes
// rearranged to [out, in, kh, kw] and the spatial axes flipped.
func thKernelFromNative(native *tensors.Tensor) *tensors.Tensor {
	dims := native.Shape().Dimensions
	kh, kw, in, out := dims[0], dims[1], dims[2], dims[3]
	var flat []float32
	tensors.ConstFlatData(native, func(data []float32) {
		flat = append([]float32{}, data...)
	})
	at := func(h, w, i, o int) float32 {
		return flat[((h*kw+w)*in+i)*out+o]
	}
	th := make([]float32, 0, len(flat))
	for o := 0; o < out; o++ {
		for i := 0; i < in; i++ {
			for h := kh - 1; h >= 0; h-- {
				for w := kw - 1; w >= 0; w-- {
					th = append(th, at(h, w, i, o))
				}
			}
		}
	}
	return tensors.FromFlatDataAndDimensions(th, out, in, kh, kw)
}

func TestConvertConvKernel(t *testing.T) {
	// Native channels-last kernel [kh=2, kw=3, in=2, out=4] with distinct values.
	native := make([]float32, 2*3*2*4)
	for ii := range native {
		native[ii] = float32(ii)
	}
	nativeT := tensors.FromFlatDataAndDimensions(native, 2, 3, 2, 4)

	// Identity: the tensor is returned as is.
	same, err := convertConvKernel(nativeT, KernelsChannelsLast, images.ChannelsLast)
	require.NoError(t, err)
	require.Same(t, nativeT, same)

	// Round-trip: converting the "th" representation for a channels-last graph
	// must give back exactly the native kernel.
	thT := thKernelFromNative(nativeT)
	converted, err := convertConvKernel(thT, KernelsChannelsFirst, images.ChannelsLast)
	require.NoError(t, err)
	require.True(t, converted.Shape().Equal(nativeT.Shape()),
		"converted shape %s, want %s", converted.Shape(), nativeT.Shape())
	require.Equal(t, nativeT.Value(), converted.Value())

	// Layout change only (tf file, channels-first graph): axes move, no flip.
	permuted, err := convertConvKernel(nativeT, KernelsChannelsLast, images.ChannelsFirst)
	require.NoError(t, err)
	require.NoError(t, permuted.Shape().CheckDims(2, 2, 3, 4))
	got := permuted.Value().([][][][]float32)
	want := nativeT.Value().([][][][]float32)
	for h := 0; h < 2; h++ {
		for w := 0; w < 3; w++ {
			for i := 0; i < 2; i++ {
				for o := 0; o < 4; o++ {
					assert.Equal(t, want[h][w][i][o], got[i][h][w][o])
				}
			}
		}
	}

	// Rank is checked.
	_, err = convertConvKernel(tensors.FromFlatDataAndDimensions([]float32{1, 2}, 2), KernelsChannelsFirst, images.ChannelsLast)
	require.Error(t, err)
}
