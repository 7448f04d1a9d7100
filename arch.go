package vgg19

import "fmt"

const (
	// ClassificationImageSize is the spatial size (height and width) the model requires
	// when built with the classification top. Without the top any spatial size works.
	ClassificationImageSize = 224

	// NumChannels is the number of image channels the model accepts (RGB).
	NumChannels = 3

	// NumClasses output by the classification top, the 1000 ImageNet classes.
	NumClasses = 1000

	// HiddenLayerSize of the two fully-connected layers of the classification top.
	HiddenLayerSize = 4096

	// Scope used for the model's variables and node aliases.
	Scope = "vgg19"
)

// ConvBlock describes one pooling-delimited stage of the VGG19 feature extractor:
// NumConvs 3x3 convolutions with Filters output channels each, followed by a
// 2x2/stride-2 max-pooling.
type ConvBlock struct {
	Name     string
	Filters  int
	NumConvs int
}

// ConvBlocks is the VGG19 architecture table, from the paper
// "Very Deep Convolutional Networks for Large-Scale Image Recognition"
// (https://arxiv.org/abs/1409.1556), configuration E.
//
// The layer and block names match the ones used in the Keras pre-trained
// weight files, so they double as the keys used to look up weights.
var ConvBlocks = [5]ConvBlock{
	{Name: "block1", Filters: 64, NumConvs: 2},
	{Name: "block2", Filters: 128, NumConvs: 2},
	{Name: "block3", Filters: 256, NumConvs: 4},
	{Name: "block4", Filters: 512, NumConvs: 4},
	{Name: "block5", Filters: 512, NumConvs: 4},
}

// ConvLayerNames returns the names of the 16 convolution layers in the order
// they appear in the model: "block1_conv1", "block1_conv2", "block2_conv1", ...
func ConvLayerNames() []string {
	var names []string
	for _, block := range ConvBlocks {
		for conv := 1; conv <= block.NumConvs; conv++ {
			names = append(names, fmt.Sprintf("%s_conv%d", block.Name, conv))
		}
	}
	return names
}
