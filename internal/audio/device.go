package audio

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// Device describes a capture device for listing and selection.
type Device struct {
	Index    int
	Name     string
	Channels int
	Default  bool
}

// ListDevices enumerates input-capable devices, owning the portaudio
// lifecycle for the duration of the call.
func ListDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	def, _ := portaudio.DefaultInputDevice()
	out := make([]Device, 0, len(devs))
	for i, d := range devs {
		if d.MaxInputChannels <= 0 {
			continue
		}
		out = append(out, Device{
			Index:    i,
			Name:     d.Name,
			Channels: d.MaxInputChannels,
			Default:  def != nil && d.Name == def.Name,
		})
	}
	return out, nil
}

func selectDevice(preferredName string, preferredIndex int) (*portaudio.DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if preferredIndex >= 0 && preferredIndex < len(devs) {
		if d := devs[preferredIndex]; d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	if preferredName != "" {
		for _, d := range devs {
			if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), strings.ToLower(preferredName)) {
				return d, nil
			}
		}
	}
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		return def, nil
	}
	for _, d := range devs {
		if d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no input devices found")
}
