package vgg19

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/data"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gomlx/types/tensors/images"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// weightsLoader reads the pre-trained tensors unpacked from a Keras `.h5` weight
// file into context variables, so the layers pick them up instead of their
// random initialization.
//
// It understands the naming used in the weight files: each layer is a group
// holding datasets "<layer>_W" and "<layer>_b". Convolution kernels are
// converted to the graph's kernel layout when the file's ordering convention
// does not match it.
type weightsLoader struct {
	baseDir       string
	includeTop    bool
	ordering      KernelOrdering
	graphChannels images.ChannelsAxisConfig
}

func newWeightsLoader(baseDir string, includeTop bool, ordering KernelOrdering, graphChannels images.ChannelsAxisConfig) *weightsLoader {
	wl := &weightsLoader{
		baseDir:       data.ReplaceTildeInDir(baseDir),
		includeTop:    includeTop,
		ordering:      ordering,
		graphChannels: graphChannels,
	}
	if ordering != orderingFor(graphChannels) {
		klog.Warningf("vgg19: weight file uses the %s kernel convention but the graph uses %s: "+
			"converting all convolution kernels while loading. Prefer the matching weight file "+
			"(see Config.KernelOrdering) to skip the conversion.",
			wl.ordering, orderingFor(graphChannels))
	}
	return wl
}

// orderingFor returns the kernel ordering that matches the graph's channels
// configuration, i.e. the one that loads without conversion.
func orderingFor(channels images.ChannelsAxisConfig) KernelOrdering {
	if channels == images.ChannelsFirst {
		return KernelsChannelsFirst
	}
	return KernelsChannelsLast
}

// loadTensor reads the unpacked tensor named tensorName (path within the `.h5`
// file) and sets it as the value of variable variableName in ctx's current scope.
// If the variable is already set, it is left untouched, so models can be built
// more than once over the same context scope.
func (wl *weightsLoader) loadTensor(ctx *context.Context, tensorName, variableName string, convKernel bool) {
	if ctx.InspectVariable(ctx.Scope(), variableName) != nil {
		// Assume it was already correctly loaded.
		return
	}
	tensorPath := PathToTensor(wl.baseDir, wl.includeTop, wl.ordering, tensorName)
	local, err := tensors.Load(tensorPath)
	if err != nil {
		panic(errors.Wrapf(err, "vgg19: failed to read weights from %q -- did DownloadAndUnpackWeights succeed?", tensorPath))
	}
	if convKernel {
		local, err = convertConvKernel(local, wl.ordering, wl.graphChannels)
		if err != nil {
			panic(errors.Wrapf(err, "vgg19: failed to convert kernel %q to the graph's layout", tensorName))
		}
	}
	_ = ctx.VariableWithValue(variableName, local)
}

// ReadConv2D loads the kernel and bias of the named convolution layer into the
// given scope, using the variable names layers.Convolution expects. It returns
// the scope marked for reuse, ready to be passed to the layer.
func (wl *weightsLoader) ReadConv2D(ctx *context.Context, layerName string) *context.Context {
	group := fmt.Sprintf("%s/%s", layerName, layerName)
	wl.loadTensor(ctx, group+"_W", "weights", true)
	wl.loadTensor(ctx, group+"_b", "biases", false)
	return ctx.Reuse()
}

// ReadDense loads the weights and bias of the named fully-connected layer. The
// returned scope is marked as unchecked: layers.Dense reuses the loaded
// variables but may create new ones (e.g. regularization state).
func (wl *weightsLoader) ReadDense(ctx *context.Context, layerName string) *context.Context {
	if !wl.includeTop {
		exceptions.Panicf("vgg19: dense layer %q requested from a weight file without the classification top", layerName)
	}
	group := fmt.Sprintf("%s/%s", layerName, layerName)
	wl.loadTensor(ctx, group+"_W", "weights", false)
	wl.loadTensor(ctx, group+"_b", "biases", false)
	return ctx.Checked(false)
}
