package complexdir

import (
	"bytes"
	"strconv"
	"strings"
)

type complexResponse struct {
	AptSeq          flexInt       `json:"aptSeq"`
	Name            string        `json:"name"`
	BuildYear       flexInt       `json:"buildYear"`
	Address         string        `json:"address"`
	RoadAddress     string        `json:"roadAddress"`
	TotalHouseholds flexInt       `json:"totalHouseholds"`
	Region          complexRegion `json:"region"`
}

type complexRegion struct {
	SidoCode    string `json:"sidoCode"`
	SigunguCode string `json:"sigunguCode"`
	DongCode    string `json:"dongCode"`
}

// flexInt accepts numbers and quoted numbers; anything else decodes as zero.
type flexInt int64

func (n *flexInt) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	trimmed := strings.Trim(strings.TrimSpace(string(data)), "\"")
	trimmed = strings.ReplaceAll(trimmed, ",", "")
	v, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = flexInt(v)
	return nil
}
