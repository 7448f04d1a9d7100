// Package vgg19 provides the VGG19 convolutional network for GoMLX, optionally
// loading the weights pre-trained on ImageNet from the original Keras release.
//
// VGG19 is defined in "Very Deep Convolutional Networks for Large-Scale Image
// Recognition" (https://arxiv.org/abs/1409.1556). It is an older architecture,
// but its features are still popular for perceptual losses and style transfer.
//
// Typical usage, inside a graph building function:
//
//	image = vgg19.PreprocessImage(image, 255.0, images.ChannelsLast)
//	predictions := vgg19.BuildGraph(ctx, image).
//		Pretrained(vgg19.WeightsImageNet).
//		Done()
//
// Use ClassificationTop(false) to get the 512-channels convolutional features
// instead of the 1000 ImageNet class probabilities, e.g. for transfer learning.
package vgg19

import (
	"fmt"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/ml/layers/activations"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/gomlx/gomlx/types/tensors/images"
	"github.com/pkg/errors"
)

// Config for building the VGG19 graph. Create it with BuildGraph, set the
// options and when done call Done, which returns the model's output Node.
type Config struct {
	ctx   *context.Context
	image *Node

	includeTop     bool
	weights        Weights
	cacheDir       string
	channelsConfig images.ChannelsAxisConfig
	ordering       KernelOrdering
	orderingSet    bool
	trainable      bool
	lrScale        float64
	useAliases     bool
}

// BuildGraph builds the computation graph of the VGG19 model on top of image,
// which must be shaped [batchSize, height, width, 3] (channels-last, the
// default) or [batchSize, 3, height, width] (see ChannelsAxis).
//
// The image node given is used verbatim as the model's input: build it however
// fits the surrounding graph (a graph parameter, the output of an augmentation
// pipeline, etc.). See PreprocessImage for the scaling the pre-trained weights
// expect.
//
// It returns a Config. Set the options and call Config.Done to get the model's
// output. Variables are created (or reused) in ctx under the "vgg19" scope, so
// calling it more than once on the same context builds a second tower sharing
// the same weights.
func BuildGraph(ctx *context.Context, image *Node) *Config {
	return &Config{
		ctx:            ctx,
		image:          image,
		includeTop:     true,
		weights:        WeightsNone,
		cacheDir:       DefaultCacheDir,
		channelsConfig: images.ChannelsLast,
		trainable:      true,
		lrScale:        1.0,
	}
}

// ClassificationTop includes the 3 fully-connected layers on top of the
// convolutional stack, ending in a softmax over the 1000 ImageNet classes.
// With the top the input spatial dimensions must be exactly
// ClassificationImageSize x ClassificationImageSize; without it any spatial
// size works and the model outputs the last pooling stage, with 512 channels.
//
// Default is true.
func (c *Config) ClassificationTop(includeTop bool) *Config {
	c.includeTop = includeTop
	return c
}

// Pretrained selects the weights to load: WeightsNone (random initialization)
// or WeightsImageNet (downloaded and cached on first use, see CacheDir).
// Anything else makes Done panic with an error, before any graph building or
// I/O.
//
// Default is WeightsNone.
func (c *Config) Pretrained(weights Weights) *Config {
	c.weights = weights
	return c
}

// CacheDir sets the directory where the pre-trained weights are downloaded and
// unpacked. Default is DefaultCacheDir.
func (c *Config) CacheDir(baseDir string) *Config {
	c.cacheDir = baseDir
	return c
}

// ChannelsAxis configures which axis of the input holds the channels:
// images.ChannelsLast (default) or images.ChannelsFirst.
//
// This is an explicit configuration of the model: no process-wide backend
// setting is consulted.
func (c *Config) ChannelsAxis(channelsAxisConfig images.ChannelsAxisConfig) *Config {
	c.channelsConfig = channelsAxisConfig
	return c
}

// KernelOrdering selects which of the two published weight files to use, by the
// axis ordering convention of its convolution kernels. By default the file
// matching ChannelsAxis is used, so no convention conversion is needed. If the
// selected file's convention doesn't match the graph's, every convolution
// kernel is converted once while loading -- the model is numerically the same,
// at the cost of a one-time conversion and a warning.
func (c *Config) KernelOrdering(ordering KernelOrdering) *Config {
	c.ordering = ordering
	c.orderingSet = true
	return c
}

// Trainable marks the model's variables as trainable (or not). Set it to false
// when using the pre-trained model as a frozen feature extractor -- consider
// also StopGradient on the output. Default is true.
func (c *Config) Trainable(trainable bool) *Config {
	c.trainable = trainable
	return c
}

// LearningRateScale scales the learning rate used for all of the model's
// layers, relative to the learning rate configured for the surrounding context
// (or the 0.001 default) -- useful to fine-tune the pre-trained layers more
// gently than freshly initialized layers added on top.
//
// It is implemented by setting optimizers.ParamLearningRate on the model's
// scope. Default is 1.0, which leaves the context untouched.
func (c *Config) LearningRateScale(scale float64) *Config {
	c.lrScale = scale
	return c
}

// WithAliases makes the graph nodes of the model's layers aliased (under the
// "vgg19" alias scope), so they can be retrieved with Graph.GetNodeByAlias --
// e.g. "/vgg19/block5_conv4/output" for perceptual losses. Default is false.
func (c *Config) WithAliases(useAliases bool) *Config {
	c.useAliases = useAliases
	return c
}

// Done builds the VGG19 graph as configured and returns its output: the
// ImageNet class probabilities shaped [batchSize, 1000] with the classification
// top, or the last pooling stage shaped [batchSize, poolH, poolW, 512]
// (channels-last) without it.
//
// If pre-trained weights are selected they are downloaded (first use only) and
// loaded into the model's variables. Errors are raised with panic, following
// GoMLX's exceptions convention.
func (c *Config) Done() *Node {
	if c.weights != WeightsNone && c.weights != WeightsImageNet {
		exceptions.Panicf("vgg19: invalid weights selector %s: use vgg19.WeightsNone (random "+
			"initialization) or vgg19.WeightsImageNet (pre-training on ImageNet)", c.weights)
	}

	c.image.AssertRank(4)
	if c.channelsConfig == images.ChannelsFirst {
		if c.includeTop {
			c.image.AssertDims(-1, NumChannels, ClassificationImageSize, ClassificationImageSize)
		} else {
			c.image.AssertDims(-1, NumChannels, -1, -1)
		}
	} else {
		if c.includeTop {
			c.image.AssertDims(-1, ClassificationImageSize, ClassificationImageSize, NumChannels)
		} else {
			c.image.AssertDims(-1, -1, -1, NumChannels)
		}
	}

	var loader *weightsLoader
	if c.weights == WeightsImageNet {
		ordering := c.ordering
		if !c.orderingSet {
			ordering = orderingFor(c.channelsConfig)
		}
		if err := DownloadAndUnpackWeights(c.cacheDir, c.includeTop, ordering); err != nil {
			panic(errors.WithMessagef(err, "vgg19: failed to fetch the %s/%s pre-trained weights",
				map[bool]string{true: "with-top", false: "no-top"}[c.includeTop], ordering))
		}
		loader = newWeightsLoader(c.cacheDir, c.includeTop, ordering, c.channelsConfig)
	}

	ctx := c.ctx.In(Scope)
	if c.lrScale != 1.0 {
		baseLR := context.GetParamOr(c.ctx, optimizers.ParamLearningRate, 0.001)
		ctx.SetParam(optimizers.ParamLearningRate, baseLR*c.lrScale)
	}

	g := c.image.Graph()
	if c.useAliases {
		g.PushAliasScope(Scope)
		defer g.PopAliasScope()
	}

	x := c.image
	if c.useAliases {
		x = x.WithAlias("input")
	}
	for _, block := range ConvBlocks {
		for conv := 1; conv <= block.NumConvs; conv++ {
			x = c.convRelu(ctx, loader, x, fmt.Sprintf("%s_conv%d", block.Name, conv), block.Filters)
		}
		x = MaxPool(x).ChannelsAxis(c.channelsConfig).Window(2).Strides(2).NoPadding().Done()
		if c.useAliases {
			x = x.WithAlias(block.Name + "_pool/output")
		}
	}

	if c.includeTop {
		// Classification block.
		batchSize := x.Shape().Dimensions[0]
		x = Reshape(x, batchSize, x.Shape().Size()/batchSize)
		x = activations.Relu(c.denseLayer(ctx, loader, x, "fc1", HiddenLayerSize))
		x = activations.Relu(c.denseLayer(ctx, loader, x, "fc2", HiddenLayerSize))
		logits := c.denseLayer(ctx, loader, x, "predictions", NumClasses)
		if c.useAliases {
			logits = logits.WithAlias("logits")
		}
		x = Softmax(logits)
		if c.useAliases {
			x = x.WithAlias("predictions")
		}
	}

	if !c.trainable {
		ctx.EnumerateVariablesInScope(func(v *context.Variable) {
			v.SetTrainable(false)
		})
	}
	return x
}

// convRelu adds one named 3x3, same-padding convolution followed by a ReLU,
// loading its pre-trained kernel and bias when a loader is given.
func (c *Config) convRelu(ctx *context.Context, loader *weightsLoader, x *Node, name string, filters int) *Node {
	ctxLayer := ctx.In(name)
	if loader != nil {
		ctxLayer = loader.ReadConv2D(ctxLayer, name)
	}
	x = layers.Convolution(ctxLayer, x).CurrentScope().
		ChannelsAxis(c.channelsConfig).
		Filters(filters).KernelSize(3).PadSame().
		Done()
	if c.useAliases {
		x = x.WithAlias(name + "/output")
	}
	return activations.Relu(x)
}

// denseLayer adds one named fully-connected layer (with bias), loading its
// pre-trained weights when a loader is given.
func (c *Config) denseLayer(ctx *context.Context, loader *weightsLoader, x *Node, name string, outputDim int) *Node {
	ctxLayer := ctx.In(name)
	if loader != nil {
		// layers.Dense keeps its variables under a "dense" sub-scope.
		_ = loader.ReadDense(ctxLayer.In("dense"), name)
		ctxLayer = ctxLayer.Checked(false)
	}
	x = layers.Dense(ctxLayer, x, true, outputDim)
	if c.useAliases {
		x = x.WithAlias(name + "/output")
	}
	return x
}
