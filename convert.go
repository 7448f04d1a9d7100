package vgg19

import (
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gomlx/types/tensors/images"
	"github.com/pkg/errors"
)

// This file converts convolution kernels between the axis ordering convention of
// the weight file and the one the graph's convolution layers expect.
//
// The "tf" files store kernels as [kernelH, kernelW, inputChannels, outputChannels].
// The "th" files store kernels as [outputChannels, inputChannels, kernelH, kernelW]
// and with the spatial axes flipped (Theano computes a true convolution, while
// TensorFlow and GoMLX compute a cross-correlation).
//
// GoMLX's layers.Convolution kernel variable is shaped
// [kernelH, kernelW, inputChannels, outputChannels] for a channels-last graph and
// [inputChannels, kernelH, kernelW, outputChannels] for a channels-first graph.

// kernelTransform returns how to rearrange a kernel read from a file with the
// given ordering into the layout required by a graph with the given channels
// configuration: output axis i of the converted kernel takes input axis perm[i],
// and flipSpatial tells whether the spatial axes must be read reversed.
//
// identity is true when the kernel can be used as is.
func kernelTransform(fileOrdering KernelOrdering, graphConfig images.ChannelsAxisConfig) (perm [4]int, flipSpatial, identity bool) {
	channelsFirst := graphConfig == images.ChannelsFirst
	switch {
	case fileOrdering == KernelsChannelsLast && !channelsFirst:
		return [4]int{0, 1, 2, 3}, false, true
	case fileOrdering == KernelsChannelsLast && channelsFirst:
		// [kh, kw, in, out] -> [in, kh, kw, out]
		return [4]int{2, 0, 1, 3}, false, false
	case fileOrdering == KernelsChannelsFirst && !channelsFirst:
		// [out, in, kh, kw] -> [kh, kw, in, out]
		return [4]int{2, 3, 1, 0}, true, false
	default:
		// [out, in, kh, kw] -> [in, kh, kw, out]
		return [4]int{1, 2, 3, 0}, true, false
	}
}

// spatialFileAxes of a kernel in a file with the given ordering.
func spatialFileAxes(fileOrdering KernelOrdering) [2]int {
	if fileOrdering == KernelsChannelsFirst {
		return [2]int{2, 3}
	}
	return [2]int{0, 1}
}

// convertConvKernel returns kernel rearranged from the file's ordering into the
// layout required by the graph's channels configuration. When no rearrangement
// is needed the kernel is returned unchanged.
func convertConvKernel(kernel *tensors.Tensor, fileOrdering KernelOrdering, graphConfig images.ChannelsAxisConfig) (*tensors.Tensor, error) {
	perm, flipSpatial, identity := kernelTransform(fileOrdering, graphConfig)
	if identity {
		return kernel, nil
	}
	if kernel.Rank() != 4 {
		return nil, errors.Errorf("convolution kernel expected to be rank-4, got shape %s", kernel.Shape())
	}

	dims := kernel.Shape().Dimensions
	newDims := make([]int, 4)
	for ii, axis := range perm {
		newDims[ii] = dims[axis]
	}
	converted := tensors.FromShape(shapes.Make(kernel.DType(), newDims...))

	// Strides (in elements) for the converted tensor.
	var newStrides [4]int
	stride := 1
	for ii := 3; ii >= 0; ii-- {
		newStrides[ii] = stride
		stride *= newDims[ii]
	}
	spatial := spatialFileAxes(fileOrdering)

	var convErr error
	kernel.ConstFlatData(func(fromAny any) {
		converted.MutableFlatData(func(toAny any) {
			switch from := fromAny.(type) {
			case []float32:
				permuteKernelData(from, toAny.([]float32), dims, perm, newStrides, spatial, flipSpatial)
			case []float64:
				permuteKernelData(from, toAny.([]float64), dims, perm, newStrides, spatial, flipSpatial)
			default:
				convErr = errors.Errorf("unsupported kernel dtype %s", kernel.DType())
			}
		})
	})
	if convErr != nil {
		return nil, convErr
	}
	return converted, nil
}

// permuteKernelData copies a rank-4 tensor applying the axes permutation and,
// optionally, flipping the source spatial axes.
func permuteKernelData[T float32 | float64](from, to []T, dims []int, perm [4]int, newStrides [4]int, spatial [2]int, flipSpatial bool) {
	var coords [4]int
	for flatIdx, value := range from {
		// Source coordinates for flatIdx, row-major.
		remainder := flatIdx
		for axis := 3; axis >= 0; axis-- {
			coords[axis] = remainder % dims[axis]
			remainder /= dims[axis]
		}
		if flipSpatial {
			for _, axis := range spatial {
				coords[axis] = dims[axis] - 1 - coords[axis]
			}
		}
		toIdx := 0
		for axis, fromAxis := range perm {
			toIdx += coords[fromAxis] * newStrides[axis]
		}
		to[toIdx] = value
	}
}
