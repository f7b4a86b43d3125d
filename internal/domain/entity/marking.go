package entity

// DefaultFPS is used when neither the request nor the probe yields a frame rate.
const DefaultFPS = 30.0

// MarkTimestamps expands a FrameMarking into timestamps at fps, skipping any
// frame index already present in existing. Indices run from StartFrame to
// EndFrame inclusive in steps of EveryN.
func MarkTimestamps(m FrameMarking, fps float64, existing []float64) []float64 {
	if fps <= 0 {
		fps = DefaultFPS
	}
	step := max(1, m.EveryN)
	start := max(0, m.StartFrame)
	end := m.EndFrame
	if end < start {
		return nil
	}

	seen := make(map[int]struct{}, len(existing))
	for _, ts := range existing {
		seen[frameIndex(ts, fps)] = struct{}{}
	}

	var out []float64
	for idx := start; idx <= end; idx += step {
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, float64(idx)/fps)
	}
	return out
}

func frameIndex(ts, fps float64) int {
	return int(ts*fps + 0.5)
}
