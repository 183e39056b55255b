package pose

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// YOLOv8-pose head layout: 4 box values, 1 person score, then (x, y, conf) per keypoint.
const (
	yoloBoxValues   = 4
	yoloScoreOffset = 4
	yoloKptOffset   = 5
	yoloChannels    = yoloKptOffset + NumKeypoints*3 // 56
)

// YOLOConfig holds pose estimator configuration
type YOLOConfig struct {
	ModelPath        string  `mapstructure:"model_path"`
	ConfidenceThresh float32 `mapstructure:"confidence"`
	NMSThresh        float32 `mapstructure:"nms"`
	InputWidth       int     `mapstructure:"input_width"`
	InputHeight      int     `mapstructure:"input_height"`
}

// DefaultYOLOConfig returns production defaults for YOLOv8n-pose
func DefaultYOLOConfig() YOLOConfig {
	return YOLOConfig{
		ModelPath:        "models/yolov8n-pose.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// YOLOEstimator runs a YOLOv8-pose ONNX model through OpenCV DNN.
type YOLOEstimator struct {
	net       gocv.Net
	config    YOLOConfig
	mu        sync.Mutex
	inputSize image.Point
}

// NewYOLO loads the pose model.
func NewYOLO(cfg YOLOConfig) (*YOLOEstimator, error) {
	// Check if model file exists
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YOLOEstimator{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// Estimate finds the most prominent person in an RGB frame.
func (e *YOLOEstimator) Estimate(rgb gocv.Mat) (*Pose, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if rgb.Empty() {
		return nil, ErrEmptyFrame
	}

	// Frame is already RGB, so no channel swap
	blob := gocv.BlobFromImage(rgb, 1.0/255.0, e.inputSize, gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	e.net.SetInput(blob, "")

	output := e.net.Forward("")
	defer output.Close()

	// Output shape: [1, 56, N]
	dims := output.Size()
	if len(dims) < 2 {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedOutput, dims)
	}
	channels, anchors := dims[len(dims)-2], dims[len(dims)-1]
	if channels != yoloChannels {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedOutput, dims)
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	candidates := decodeYOLOPose(data, anchors, e.config)
	if len(candidates) == 0 {
		return nil, nil
	}

	kept := e.suppress(candidates)
	best := SelectBest(kept)
	if best == nil {
		return nil, nil
	}
	p := *best
	return &p, nil
}

// suppress applies non-maximum suppression over candidate boxes.
func (e *YOLOEstimator) suppress(candidates []Pose) []Pose {
	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	w, h := float64(e.config.InputWidth), float64(e.config.InputHeight)

	for i, c := range candidates {
		boxes[i] = image.Rect(
			int(c.Box.X*w), int(c.Box.Y*h),
			int((c.Box.X+c.Box.W)*w), int((c.Box.Y+c.Box.H)*h),
		)
		scores[i] = float32(c.Score)
	}

	indices := gocv.NMSBoxes(boxes, scores, e.config.ConfidenceThresh, e.config.NMSThresh)

	kept := make([]Pose, 0, len(indices))
	for _, idx := range indices {
		kept = append(kept, candidates[idx])
	}
	return kept
}

// decodeYOLOPose turns the channel-major [56 x anchors] head into normalized poses.
// Candidates below the confidence threshold are dropped.
func decodeYOLOPose(data []float32, anchors int, cfg YOLOConfig) []Pose {
	if anchors <= 0 || len(data) < yoloChannels*anchors {
		return nil
	}

	inW := float64(cfg.InputWidth)
	inH := float64(cfg.InputHeight)
	at := func(ch, i int) float64 { return float64(data[ch*anchors+i]) }

	var poses []Pose
	for i := 0; i < anchors; i++ {
		score := data[yoloScoreOffset*anchors+i]
		if score < cfg.ConfidenceThresh {
			continue
		}

		// Box is center x, center y, width, height in input pixels
		cx, cy, w, h := at(0, i), at(1, i), at(2, i), at(3, i)

		landmarks := make([]Landmark, NumKeypoints)
		for k := 0; k < NumKeypoints; k++ {
			base := yoloKptOffset + k*3
			landmarks[k] = Landmark{
				X:          at(base, i) / inW,
				Y:          at(base+1, i) / inH,
				Visibility: at(base+2, i),
			}
		}

		poses = append(poses, Pose{
			Landmarks: landmarks,
			Box: Box{
				X: (cx - w/2) / inW,
				Y: (cy - h/2) / inH,
				W: w / inW,
				H: h / inH,
			},
			Score: float64(score),
		})
	}

	return poses
}

// Close releases the network.
func (e *YOLOEstimator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Close()
}
