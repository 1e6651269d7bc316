package telemetry

import (
	"google.golang.org/protobuf/proto"

	pb "github.com/denis-giri/pdraw/pkg/proto"
	"github.com/denis-giri/pdraw/pkg/types"
)

// toProto converts a sample to its LatencyEvent message
func toProto(s types.LatencySample) *pb.LatencyEvent {
	t := s.Telemetry
	return &pb.LatencyEvent{
		FrameNum:          s.FrameNum,
		RenderTimestampUs: s.RenderTimestamp,
		PositionUs:        s.Position,
		DurationUs:        s.Duration,
		DecodeMs:          s.DecodeMs,
		RenderMs:          s.RenderMs,
		EndToEndMs:        s.EndToEndMs,
		Telemetry: &pb.Telemetry{
			Roll:           t.Roll,
			Pitch:          t.Pitch,
			Yaw:            t.Yaw,
			Altitude:       t.Altitude,
			Latitude:       t.Latitude,
			Longitude:      t.Longitude,
			GroundSpeed:    t.GroundSpeed,
			BatteryPercent: int32(t.BatteryPercent),
			WifiRssi:       int32(t.WifiRSSI),
			Recording:      t.Recording,
		},
	}
}

func fromProto(e *pb.LatencyEvent) types.LatencySample {
	s := types.LatencySample{
		FrameNum:        e.GetFrameNum(),
		RenderTimestamp: e.GetRenderTimestampUs(),
		Position:        e.GetPositionUs(),
		Duration:        e.GetDurationUs(),
		DecodeMs:        e.GetDecodeMs(),
		RenderMs:        e.GetRenderMs(),
		EndToEndMs:      e.GetEndToEndMs(),
	}
	if t := e.GetTelemetry(); t != nil {
		s.Telemetry = types.Telemetry{
			Roll:           t.GetRoll(),
			Pitch:          t.GetPitch(),
			Yaw:            t.GetYaw(),
			Altitude:       t.GetAltitude(),
			Latitude:       t.GetLatitude(),
			Longitude:      t.GetLongitude(),
			GroundSpeed:    t.GetGroundSpeed(),
			BatteryPercent: int(t.GetBatteryPercent()),
			WifiRSSI:       int(t.GetWifiRssi()),
			Recording:      t.GetRecording(),
		}
	}
	return s
}

// MarshalSample encodes s as a LatencyEvent message
func MarshalSample(s types.LatencySample) ([]byte, error) {
	return proto.Marshal(toProto(s))
}

// UnmarshalSample decodes a LatencyEvent message. Unknown fields are skipped.
func UnmarshalSample(b []byte) (types.LatencySample, error) {
	var e pb.LatencyEvent
	if err := proto.Unmarshal(b, &e); err != nil {
		return types.LatencySample{}, err
	}
	return fromProto(&e), nil
}
