package alsa

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// fallbackDevice is used when nothing can be enumerated at all.
const fallbackDevice = "hw:0,0"

var manualDeviceRe = regexp.MustCompile(`^hw:(\d+),(\d+)$`)

// Output categories, ordered by preference. Analog outputs beat unclassified
// hardware, which beats HDMI, which beats pure-digital transports that tend
// to need an external decoder.
const (
	categoryAnalog  = 0
	categoryDefault = 1
	categoryHDMI    = 2
	categoryDigital = 3
)

var (
	analogHints  = []string{"analog", "headphone", "speaker", "dac"}
	hdmiHints    = []string{"hdmi", "displayport"}
	digitalHints = []string{"digital", "spdif", "s/pdif", "iec958"}
)

// classifyOutput buckets a device by hint words in its description and card
// id. Matching is case-insensitive substring search on either field.
func classifyOutput(description, cardID string) int {
	haystacks := []string{strings.ToLower(description), strings.ToLower(cardID)}
	match := func(hints []string) bool {
		for _, hay := range haystacks {
			for _, hint := range hints {
				if strings.Contains(hay, hint) {
					return true
				}
			}
		}
		return false
	}
	switch {
	case match(analogHints):
		return categoryAnalog
	case match(hdmiHints):
		return categoryHDMI
	case match(digitalHints):
		return categoryDigital
	default:
		return categoryDefault
	}
}

// Selection is the outcome of device selection. The pointer fields stay nil
// when the device was overridden with something sysfs cannot describe; the
// caller must then skip every rate decision that needs a card index.
type Selection struct {
	Device string
	Card   *int
	Dev    *int
	CardID *string
	IsUSB  *bool
}

// ChooseDevice picks the playback device. A manual hw:<card>,<device>
// override is trusted verbatim with its card metadata still resolved; any
// other override passes through opaquely. Without an override the enumerated
// devices are ranked USB-first, then by output category, then by lowest
// card/device index.
func (h *Hardware) ChooseDevice(ctx context.Context, manual string) Selection {
	if manual != "" {
		if m := manualDeviceRe.FindStringSubmatch(manual); m != nil {
			card, _ := strconv.Atoi(m[1])
			dev, _ := strconv.Atoi(m[2])
			sel := Selection{Device: manual, Card: &card, Dev: &dev}
			if id, ok := h.CardID(card); ok {
				sel.CardID = &id
			}
			usb := h.IsUSBCard(card)
			sel.IsUSB = &usb
			return sel
		}
		return Selection{Device: manual}
	}

	devices := h.ListPlaybackDevices(ctx)
	if len(devices) == 0 {
		return Selection{Device: fallbackDevice}
	}

	type candidate struct {
		dev      PlaybackDevice
		usbRank  int // 0 when on USB, so USB sorts first
		category int
	}
	cands := make([]candidate, 0, len(devices))
	for _, d := range devices {
		c := candidate{dev: d, usbRank: 1, category: classifyOutput(d.Description, d.CardID)}
		if h.IsUSBCard(d.Card) {
			c.usbRank = 0
		}
		cands = append(cands, c)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.usbRank != b.usbRank {
			return a.usbRank < b.usbRank
		}
		if a.category != b.category {
			return a.category < b.category
		}
		if a.dev.Card != b.dev.Card {
			return a.dev.Card < b.dev.Card
		}
		return a.dev.Device < b.dev.Device
	})

	best := cands[0].dev
	card, dev, cardID := best.Card, best.Device, best.CardID
	usb := cands[0].usbRank == 0
	return Selection{
		Device: fmt.Sprintf("hw:%d,%d", card, dev),
		Card:   &card,
		Dev:    &dev,
		CardID: &cardID,
		IsUSB:  &usb,
	}
}
