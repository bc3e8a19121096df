package inventory

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/wavebank/waveform"
)

const exampleCSV = `network, station, location, channel, latitude, gain
UU,SRU,,HHZ,39.1,1.5e9
UU,SRU,,HHN,39.1,1.4e9
TA,M17A,00,BHZ,41.2,
`

func TestInventory(t *testing.T) {
	Convey("Given an inventory CSV file", t, func() {
		path := filepath.Join(t.TempDir(), "inv.csv")
		So(os.WriteFile(path, []byte(exampleCSV), 0o600), ShouldBeNil)

		inv, err := Load(path)
		So(err, ShouldBeNil)
		So(inv.Len(), ShouldEqual, 3)

		Convey("you can look up channel metadata", func() {
			meta, ok := inv.Lookup("UU.SRU..HHZ")
			So(ok, ShouldBeTrue)
			So(meta, ShouldResemble, map[string]string{"latitude": "39.1", "gain": "1.5e9"})

			meta, ok = inv.Lookup("TA.M17A.00.BHZ")
			So(ok, ShouldBeTrue)
			So(meta["gain"], ShouldEqual, "")

			_, ok = inv.Lookup("XX.YY..ZZZ")
			So(ok, ShouldBeFalse)
		})

		Convey("you can attach it to traces", func() {
			st := waveform.Stream{
				{Network: "UU", Station: "SRU", Channel: "HHN"},
				{Network: "XX", Station: "YY", Channel: "ZZZ"},
			}

			inv.Attach(st)
			So(st[0].Meta["gain"], ShouldEqual, "1.4e9")
			So(st[1].Meta, ShouldBeNil)

			Convey("without sharing the inventory's maps", func() {
				st[0].Meta["gain"] = "changed"

				meta, _ := inv.Lookup("UU.SRU..HHN")
				So(meta["gain"], ShouldEqual, "1.4e9")
			})
		})
	})

	Convey("Bad CSV is rejected", t, func() {
		_, err := Parse(strings.NewReader("network,station,channel\nUU,SRU,HHZ\n"))
		So(errors.Is(err, ErrHeaderNotFound), ShouldBeTrue)

		_, err = Parse(strings.NewReader(""))
		So(err, ShouldNotBeNil)

		_, err = Parse(strings.NewReader("network,station,location,channel\nUU,SRU,,HHZ\nUU,SRU,,HHZ\n"))
		So(errors.Is(err, ErrDuplicate), ShouldBeTrue)

		_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
		So(err, ShouldNotBeNil)
	})
}
