package uniform

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vmihailenco/msgpack/v5"
)

// BufferSize is the size in bytes of the packed uniform buffer.
//
// Layout (std140, little-endian, every vec3 padded by the scalar after it):
//
//	offset  0: camera_position  vec3<f32>, field_of_view    f32
//	offset 16: camera_right     vec3<f32>, simulation_time  f32
//	offset 32: camera_up        vec3<f32>, skybox_intensity f32
//	offset 48: camera_forward   vec3<f32>, disc_radius      f32
//	offset 64: disc_width f32, disc_intensity f32, horizon_radius f32, basis_valid u32
const BufferSize = 80

// Marshal packs the snapshot into the renderer's uniform buffer layout.
// Camera vectors are written as recorded; basis_valid is 0 for a degenerate
// basis. Right and Up are then zero, and Forward is zero only when eye equals
// target (a vertical view keeps its Forward).
func (s Snapshot) Marshal() []byte {
	buf := make([]byte, BufferSize)

	putVec3(buf[0:], s.CameraPosition)
	putF32(buf[12:], s.FieldOfView)
	putVec3(buf[16:], s.CameraRight)
	putF32(buf[28:], s.SimulationTime)
	putVec3(buf[32:], s.CameraUp)
	putF32(buf[44:], s.SkyboxIntensity)
	putVec3(buf[48:], s.CameraForward)
	putF32(buf[60:], s.DiscRadius)
	putF32(buf[64:], s.DiscWidth)
	putF32(buf[68:], s.DiscIntensity)
	putF32(buf[72:], s.Constants.HorizonRadius)

	var valid uint32
	if s.BasisValid {
		valid = 1
	}
	binary.LittleEndian.PutUint32(buf[76:], valid)

	return buf
}

// ToMsgpack encodes the snapshot for binary transports.
func (s Snapshot) ToMsgpack() ([]byte, error) {
	return msgpack.Marshal(s)
}

// FromMsgpack decodes a snapshot produced by ToMsgpack.
func FromMsgpack(data []byte) (Snapshot, error) {
	var s Snapshot
	err := msgpack.Unmarshal(data, &s)
	return s, err
}

func putF32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func putVec3(b []byte, v mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		putF32(b[i*4:], v[i])
	}
}
