// vgg19-classify classifies an image into the 1000 ImageNet classes using the
// pre-trained VGG19 model.
//
// Example:
//
//	$ vgg19-classify -image cat.jpg
//	tabby (n02123045): 0.531
//	tiger_cat (n02123159): 0.243
//	...
//
// The first run downloads ~575MB of weights into -data (it requires the
// `h5dump` binary, from the hdf5-tools package, to unpack them); later runs
// reuse the cache.
package main

import (
	"flag"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/types/tensors/images"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/vgg19"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagImage   = flag.String("image", "", "Path of the image to classify. Required.")
	flagDataDir = flag.String("data", vgg19.DefaultCacheDir, "Directory where to cache the model weights and the class index.")
	flagTopK    = flag.Int("top", 5, "Number of top classes to report.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagImage == "" {
		klog.Exit("Please give an image to classify with -image.")
	}

	img := must.M1(imaging.Open(*flagImage, imaging.AutoOrientation(true)))
	img = imaging.Resize(img, vgg19.ClassificationImageSize, vgg19.ClassificationImageSize, imaging.Lanczos)
	imgT := images.ToTensor(dtypes.Float32).MaxValue(255.0).Single(img)

	backend := backends.MustNew()
	ctx := context.New()
	classify := context.NewExec(backend, ctx, func(ctx *context.Context, image *Node) *Node {
		image = InsertAxes(image, 0) // Batch of 1.
		image = vgg19.PreprocessImage(image, 255.0, images.ChannelsLast)
		return vgg19.BuildGraph(ctx, image).
			Pretrained(vgg19.WeightsImageNet).
			CacheDir(*flagDataDir).
			Done()
	})
	probabilities := classify.Call(imgT)[0]

	classIndex := must.M1(vgg19.DownloadClassIndex(*flagDataDir))
	predictions := must.M1(classIndex.DecodePredictions(probabilities, *flagTopK))
	for _, prediction := range predictions[0] {
		fmt.Printf("%s (%s): %.3f\n", prediction.Name, prediction.Syn, prediction.Score)
	}
}
