package vgg19

import (
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/types/tensors/images"
	"github.com/gomlx/gopjrt/dtypes"
)

// imagenetChannelMeans are the ImageNet training set channel means, in BGR
// order, used by the original Caffe models and the Keras release of the
// weights.
var imagenetChannelMeans = []float32{103.939, 116.779, 123.68}

// PreprocessImage converts an image to the format the pre-trained VGG19 weights
// were trained with: values scaled to 0-255, channels in BGR order and the
// ImageNet channel means subtracted. The result is no longer a displayable
// image.
//
// Parameters:
//   - image: tensor with a batch dimension (rank 4) and 3 (RGB) channels,
//     with values from 0 to maxValue.
//   - maxValue: maximum value of the input channels -- 255 for the usual byte
//     encoding, 1.0 for pre-scaled images. Set to 0 to skip the value scaling.
//   - channelsConfig: which axis holds the channels, commonly
//     images.ChannelsLast.
//
// Skip this (or only parts of it) when training from scratch; it only matters
// for compatibility with WeightsImageNet.
func PreprocessImage(image *Node, maxValue float64, channelsConfig images.ChannelsAxisConfig) *Node {
	g := image.Graph()
	if maxValue > 0 && maxValue != 255.0 {
		image = MulScalar(image, 255.0/maxValue)
	}

	channelsAxis := images.GetChannelsAxis(image, channelsConfig)
	// RGB -> BGR.
	image = Reverse(image, channelsAxis)

	means := Const(g, imagenetChannelMeans)
	if image.DType() != dtypes.Float32 {
		means = ConvertDType(means, image.DType())
	}
	broadcastDims := make([]int, image.Rank())
	for ii := range broadcastDims {
		broadcastDims[ii] = 1
	}
	broadcastDims[channelsAxis] = NumChannels
	means = Reshape(means, broadcastDims...)
	return Sub(image, means)
}
