package consul

import (
	"fmt"
	"testing"

	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/vetscribe/scribe/internal/pkg/test/mocks"
	tapi "github.com/vetscribe/scribe/internal/pkg/transcriber/api"
)

func Test_Get_empty(t *testing.T) {
	p := newProvider(nil, "stt")
	tr, name, err := p.Get("")
	assert.Nil(t, tr)
	assert.Equal(t, "", name)
	assert.NotNil(t, err)
}

func Test_Get_existing(t *testing.T) {
	p := newProvider(nil, "stt")
	tr := &mocks.Transcriber{}
	p.trans = append(p.trans, &trWrap{real: tr, srv: "srv:80"})
	rtr, name, err := p.Get("srv:80")
	assert.Equal(t, tr, rtr)
	assert.Equal(t, "srv:80", name)
	assert.Nil(t, err)
	rtr, name, err = p.Get("")
	assert.Equal(t, tr, rtr)
	assert.Equal(t, "srv:80", name)
	assert.Nil(t, err)
}

func Test_Get_keepsCurrent(t *testing.T) {
	p := newProvider(nil, "stt")
	tr := &mocks.Transcriber{}
	tr1 := &mocks.Transcriber{}
	p.trans = append(p.trans, &trWrap{real: tr, srv: "srv:80", priority: 1})
	p.trans = append(p.trans, &trWrap{real: tr1, srv: "srv:81", priority: 1})
	for i := 0; i < 10; i++ {
		rtr, name, err := p.Get("srv:81")
		assert.Nil(t, err)
		assert.Equal(t, "srv:81", name)
		testAssertEqPtr(t, tr1, rtr)
	}
}

func Test_Get_selectsByPriority(t *testing.T) {
	p := newProvider(nil, "stt")
	tr := &mocks.Transcriber{}
	tr1 := &mocks.Transcriber{}
	p.trans = append(p.trans, &trWrap{real: tr, srv: "srv:80", priority: 1})
	p.trans = append(p.trans, &trWrap{real: tr1, srv: "srv:81", priority: 1})
	for i := 0; i < 10; i++ {
		rtr, name, err := p.Get("olia")
		assert.Nil(t, err)
		assert.NotEmpty(t, name)
		assert.NotNil(t, rtr)
	}
}

func testAssertEqPtr(t *testing.T, tr, exp tapi.Transcriber) {
	t.Helper()
	assert.Equal(t, fmt.Sprintf("%p", tr), fmt.Sprintf("%p", exp))
}

func Test_getRandomByPriority_failsZero(t *testing.T) {
	_, err := getRandomByPriority([]*trWrap{{priority: 0}, {priority: 0}})
	assert.NotNil(t, err)
}

func TestProvider_updateSrv_no_meta(t *testing.T) {
	p := newProvider(nil, "stt")
	err := p.updateSrv([]*api.ServiceEntry{{Service: &api.AgentService{Service: "stt", Port: 80, Address: "srv",
		Meta: map[string]string{}}}})
	assert.NotNil(t, err)
	assert.Equal(t, 0, len(p.trans))
}

func TestProvider_updateSrv_adds(t *testing.T) {
	p := newProvider(nil, "stt")
	err := p.updateSrv([]*api.ServiceEntry{{Service: &api.AgentService{Service: "stt", Port: 80, Address: "srv",
		Meta: map[string]string{transcribeKey: "transcribe"}}}})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.trans))
}

func TestProvider_updateSrv_addsSame(t *testing.T) {
	p := newProvider(nil, "stt")
	err := p.updateSrv([]*api.ServiceEntry{{Service: &api.AgentService{Service: "stt", Port: 80, Address: "srv",
		Meta: map[string]string{transcribeKey: "transcribe"}}}})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.trans))
	cp := p.trans[0]
	err = p.updateSrv([]*api.ServiceEntry{{Service: &api.AgentService{Service: "stt", Port: 80, Address: "srv",
		Meta: map[string]string{transcribeKey: "transcribe"}}}})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.trans))
	assert.Equal(t, cp, p.trans[0])
}

func TestProvider_updateSrv_updates(t *testing.T) {
	p := newProvider(nil, "stt")
	err := p.updateSrv([]*api.ServiceEntry{{Service: &api.AgentService{Service: "stt", Port: 80, Address: "srv",
		Meta: map[string]string{transcribeKey: "transcribe"}}}})
	assert.Nil(t, err)
	cp := p.trans[0]
	err = p.updateSrv([]*api.ServiceEntry{{Service: &api.AgentService{Service: "stt", Port: 80, Address: "srv",
		Meta: map[string]string{transcribeKey: "transcribe/", priorityKey: "2"}}}})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.trans))
	assert.NotEqual(t, cp, p.trans[0])
}

func TestProvider_updateSrv_drops(t *testing.T) {
	p := newProvider(nil, "stt")
	err := p.updateSrv([]*api.ServiceEntry{
		{Service: &api.AgentService{Service: "stt", Port: 80, Address: "srv",
			Meta: map[string]string{transcribeKey: "transcribe"}}},
		{Service: &api.AgentService{Service: "stt", Port: 81, Address: "srv",
			Meta: map[string]string{transcribeKey: "transcribe"}}}})
	assert.Nil(t, err)
	assert.Equal(t, 2, len(p.trans))
	err = p.updateSrv([]*api.ServiceEntry{{Service: &api.AgentService{Service: "stt", Port: 80, Address: "srv",
		Meta: map[string]string{transcribeKey: "transcribe"}}}})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.trans))
	assert.Equal(t, "srv:80", p.trans[0].srv)
}

func Test_getPriority(t *testing.T) {
	tests := []struct {
		name    string
		meta    map[string]string
		want    float64
		wantErr bool
	}{
		{name: "default", meta: map[string]string{}, want: 1},
		{name: "value", meta: map[string]string{priorityKey: "2.5"}, want: 2.5},
		{name: "not a number", meta: map[string]string{priorityKey: "olia"}, wantErr: true},
		{name: "too small", meta: map[string]string{priorityKey: "0.1"}, wantErr: true},
		{name: "too big", meta: map[string]string{priorityKey: "100"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := getPriority(&api.ServiceEntry{Service: &api.AgentService{Meta: tt.meta}})
			if tt.wantErr {
				assert.NotNil(t, err)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_getURL(t *testing.T) {
	s := &api.ServiceEntry{Service: &api.AgentService{Address: "srv", Port: 8000,
		Meta: map[string]string{transcribeKey: "transcribe"}}}
	assert.Equal(t, "http://srv:8000/transcribe", getURL(s, transcribeKey))
	s.Service.Meta[isHTTPSSLKey] = "true"
	assert.Equal(t, "https://srv:8000/transcribe", getURL(s, transcribeKey))
	assert.Equal(t, "", getURL(s, "olia"))
}
