package vgg19

import (
	"encoding/json"
	"os"
	"path"
	"sort"
	"strconv"

	"github.com/gomlx/gomlx/ml/data"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"
)

// ClassIndexURL points to the ImageNet class index used by the pre-trained
// classification top: class number to (WordNet synset id, human-readable name).
const ClassIndexURL = "https://storage.googleapis.com/download.tensorflow.org/data/imagenet_class_index.json"

const classIndexFileName = "imagenet_class_index.json"

// ClassIndex maps the model's 1000 output classes to their WordNet synset ids
// and human-readable names. Get one with DownloadClassIndex.
type ClassIndex struct {
	synsets, names [NumClasses]string
}

// Prediction is one decoded classification result.
type Prediction struct {
	Class int     // Class number, 0 to 999.
	Syn   string  // WordNet synset id, e.g. "n02123045".
	Name  string  // Human-readable class name, e.g. "tabby".
	Score float32 // Probability given by the model.
}

// DownloadClassIndex fetches (or reuses the cached copy of) the ImageNet class
// index into baseDir and parses it.
func DownloadClassIndex(baseDir string) (*ClassIndex, error) {
	baseDir = data.ReplaceTildeInDir(baseDir)
	indexPath := path.Join(baseDir, classIndexFileName)
	if err := data.DownloadIfMissing(ClassIndexURL, indexPath, ""); err != nil {
		return nil, errors.WithMessagef(err, "failed to download ImageNet class index from %q", ClassIndexURL)
	}
	contents, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read ImageNet class index from %q", indexPath)
	}
	return parseClassIndex(contents)
}

func parseClassIndex(contents []byte) (*ClassIndex, error) {
	var raw map[string][2]string
	if err := json.Unmarshal(contents, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse ImageNet class index")
	}
	if len(raw) != NumClasses {
		return nil, errors.Errorf("ImageNet class index has %d entries, expected %d", len(raw), NumClasses)
	}
	ci := &ClassIndex{}
	for key, entry := range raw {
		class, err := strconv.Atoi(key)
		if err != nil || class < 0 || class >= NumClasses {
			return nil, errors.Errorf("invalid class number %q in ImageNet class index", key)
		}
		ci.synsets[class] = entry[0]
		ci.names[class] = entry[1]
	}
	return ci, nil
}

// Name of the given class number.
func (ci *ClassIndex) Name(class int) string { return ci.names[class] }

// Synset (WordNet id) of the given class number.
func (ci *ClassIndex) Synset(class int) string { return ci.synsets[class] }

// DecodePredictions converts the model's output probabilities -- shaped
// [batchSize, 1000], as returned by a model built with the classification top
// -- into the topK highest scoring classes per example, sorted by descending
// score.
func (ci *ClassIndex) DecodePredictions(probabilities *tensors.Tensor, topK int) ([][]Prediction, error) {
	batch, ok := probabilities.Value().([][]float32)
	if !ok || (len(batch) > 0 && len(batch[0]) != NumClasses) {
		return nil, errors.Errorf("DecodePredictions expects probabilities shaped [batchSize, %d] of float32, got %s",
			NumClasses, probabilities.Shape())
	}
	if topK <= 0 || topK > NumClasses {
		topK = NumClasses
	}
	results := make([][]Prediction, len(batch))
	for exampleIdx, probs := range batch {
		decoded := make([]Prediction, NumClasses)
		for class, score := range probs {
			decoded[class] = Prediction{
				Class: class,
				Syn:   ci.synsets[class],
				Name:  ci.names[class],
				Score: score,
			}
		}
		sort.Slice(decoded, func(i, j int) bool { return decoded[i].Score > decoded[j].Score })
		results[exampleIdx] = decoded[:topK]
	}
	return results, nil
}
