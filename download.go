package vgg19

import (
	"fmt"
	"path"

	"github.com/gomlx/gomlx/ml/data"
	"github.com/gomlx/gomlx/ml/data/hdf5"
)

// Weights selects which set of pre-trained weights to load into the model.
type Weights int

const (
	// WeightsNone builds the model with freshly initialized (random) weights.
	WeightsNone Weights = iota

	// WeightsImageNet loads the weights pre-trained on ImageNet. They are
	// downloaded and cached on the first use -- see Config.CacheDir.
	WeightsImageNet
)

// String implements fmt.Stringer.
func (w Weights) String() string {
	switch w {
	case WeightsNone:
		return "none"
	case WeightsImageNet:
		return "imagenet"
	default:
		return fmt.Sprintf("Weights(%d)", int(w))
	}
}

// KernelOrdering is the axis ordering convention of the convolution kernels in a
// pre-trained weight file. The upstream release ships every weight set in two
// conventions, and the file must be matched to the convention the graph uses, or
// the kernels are converted once when loaded (see Config.KernelOrdering).
type KernelOrdering int

const (
	// KernelsChannelsLast selects files whose conv kernels are stored as
	// [kernelH, kernelW, inputChannels, outputChannels] (the "tf" files).
	KernelsChannelsLast KernelOrdering = iota

	// KernelsChannelsFirst selects files whose conv kernels are stored as
	// [outputChannels, inputChannels, kernelH, kernelW], with the spatial axes
	// flipped (the "th" files).
	KernelsChannelsFirst
)

// String implements fmt.Stringer.
func (k KernelOrdering) String() string {
	switch k {
	case KernelsChannelsLast:
		return "channels-last"
	case KernelsChannelsFirst:
		return "channels-first"
	default:
		return fmt.Sprintf("KernelOrdering(%d)", int(k))
	}
}

// DefaultCacheDir is where weights are downloaded and unpacked when
// Config.CacheDir is not set.
const DefaultCacheDir = "~/.cache/gomlx/vgg19"

// The upstream release holds each of the four weight files: the full model and
// the "no top" version, each in both kernel ordering conventions.
const weightsBaseURL = "https://github.com/fchollet/deep-learning-models/releases/download/v0.1/"

// weightsFileNames is indexed by [includeTop][ordering].
var weightsFileNames = map[bool]map[KernelOrdering]string{
	true: {
		KernelsChannelsLast:  "vgg19_weights_tf_dim_ordering_tf_kernels.h5",
		KernelsChannelsFirst: "vgg19_weights_th_dim_ordering_th_kernels.h5",
	},
	false: {
		KernelsChannelsLast:  "vgg19_weights_tf_dim_ordering_tf_kernels_notop.h5",
		KernelsChannelsFirst: "vgg19_weights_th_dim_ordering_th_kernels_notop.h5",
	},
}

// WeightsFile returns the file name and download URL of the pre-trained weights
// for the given (classification top, kernel ordering) combination.
func WeightsFile(includeTop bool, ordering KernelOrdering) (fileName, url string) {
	fileName = weightsFileNames[includeTop][ordering]
	url = weightsBaseURL + fileName
	return
}

// unpackedWeightsDir is the name of the subdirectory of the cache directory
// holding the unpacked tensors of one weight file.
func unpackedWeightsDir(includeTop bool, ordering KernelOrdering) string {
	name := "gomlx_weights_tf_kernels"
	if ordering == KernelsChannelsFirst {
		name = "gomlx_weights_th_kernels"
	}
	if !includeTop {
		name += "_notop"
	}
	return name
}

// DownloadAndUnpackWeights downloads the `.h5` weight file for the given
// (classification top, kernel ordering) combination into baseDir and unpacks its
// tensors, one file per tensor, under a subdirectory of baseDir. It only does
// the work if the files are not there yet, so repeated calls are cheap.
//
// It is verbose (progress bar) when downloading/unpacking, quiet otherwise.
//
// BuildGraph calls this automatically when WeightsImageNet is selected; call it
// directly to prefetch, or to separate the download from graph building.
//
// It requires the `h5dump` binary (package `hdf5-tools` on most distributions)
// to unpack the weight file.
func DownloadAndUnpackWeights(baseDir string, includeTop bool, ordering KernelOrdering) error {
	baseDir = data.ReplaceTildeInDir(baseDir)
	unpackedPath := path.Join(baseDir, unpackedWeightsDir(includeTop, ordering))
	if data.FileExists(unpackedPath) {
		// Weights already unpacked, done.
		return nil
	}

	fileName, url := WeightsFile(includeTop, ordering)
	h5Path := path.Join(baseDir, fileName)
	// The upstream release publishes no sha256 for these files, so no checksum validation.
	if err := data.DownloadIfMissing(url, h5Path, ""); err != nil {
		return err
	}

	fmt.Printf("Unpacking weights to %s:\n", unpackedPath)
	return hdf5.UnpackToTensors(unpackedPath, h5Path).ProgressBar().Done()
}

// PathToTensor returns the path of the unpacked tensor file for tensorName (the
// dataset name within the `.h5` file, e.g. "block1_conv1/block1_conv1_W").
func PathToTensor(baseDir string, includeTop bool, ordering KernelOrdering, tensorName string) string {
	baseDir = data.ReplaceTildeInDir(baseDir)
	return path.Join(baseDir, unpackedWeightsDir(includeTop, ordering), tensorName)
}
