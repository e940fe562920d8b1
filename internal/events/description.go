// Package events defines the closed event_description enum and the
// immutable Event value type that flows from the Parser and filters
// through the event manager to its sinks.
package events

// Description names the specific reason a packet was classified as it
// was. It merges original_source/src/events/event_def.h's kept
// enumeration with the additional names spec.md's component design and
// testable-properties sections reference directly but that snapshot
// omits (see DESIGN.md, Open Question 6).
type Description uint16

const (
	EvtUnknown Description = iota

	EvtEthSrcMacMatched
	EvtEthDstMacMatched
	EvtEthEthertypeMatched
	EvtEthEthertypeUnknown
	EvtEthHdrlenTooSmall

	EvtMACsecHdrLenTooSmall
	EvtMACsecTCISCSCBSet
	EvtMACsecTCIESSCSet

	EvtARPHdrlenTooSmall
	EvtARPHWAddrLenInval
	EvtARPProtocolAddrLenInval
	EvtARPInvalOperation
	EvtARPFloodMaybeInProgress

	EvtVLANHdrlenTooShort
	EvtVLANInvalVID

	EvtIPv4HdrlenTooSmall
	EvtIPv4HdrlenTooBig
	EvtIPv4HdrlenInval
	EvtIPv4VersionInvalid
	EvtIPv4FlagsInvalid
	EvtIPv4HdrChksumInvalid
	EvtIPv4ProtocolUnsupported
	EvtIPv4UnknownOpt
	EvtIPv4InvalSrcAddr
	EvtIPv4TotalLenSmallerThanHdrLen
	EvtIPv4TTLZero

	EvtIPv6HdrlenTooSmall
	EvtIPv6VersionInvalid
	EvtIPv6PayloadLenInvalid

	EvtIcmp6TypeUnsupported

	EvtPPPoEHdrTooSmall
	EvtPPPoECodeUnsupported

	EvtEAPHdrTooSmall
	EvtEAPTypeUnsupported

	EvtTcpHdrlenTooShort
	EvtTcpFlagsAllSet
	EvtTcpFlagsNoneSet
	EvtTcpFlagsSynFinSet
	EvtTcpInvalidOption
	EvtTcpOptTsInvalLen
	EvtTcpOptWinScaleInvalLen
	EvtTcpPortZero

	EvtUdpSrcPortInvalid
	EvtUdpDstPortInvalid
	EvtUdpChksumInvalid
	EvtUdpLenTooShort

	EvtIcmpHdrLenTooShort
	EvtIcmpEchoReqHdrLenTooShort
	EvtIcmpEchoReplyHdrLenTooShort
	EvtIcmpTsMsgHdrLenTooShort
	EvtIcmpInfoMsgHdrLenTooShort
	EvtIcmpCovertChannelMaybeActive
	EvtIcmpInvalidType
	EvtIcmpDestUnreachableInvalidCode
	EvtIcmpTimeExceededInvalidCode
	EvtIcmpNonZeroEchoReqPayloadLen
	EvtIcmpFragmentedAnomaly
	EvtIcmpMulticastBroadcastDestAnomaly

	EvtIgmpTypeInvalid

	EvtDHCPMAGICInvalid
	EvtDHCPOptClientIdLenInval
	EvtDHCPOptSubnetMaskLenInval
	EvtDHCPOptRenewalTimeLenInval
	EvtDHCPOptRebindingTimeLenInval
	EvtDHCPOptIpaddrLeaseTimeLenInval
	EvtDHCPOptServerIdLenInval
	EvtDHCPHdrLenTooShort

	EvtTLSVersionUnsupported
	EvtTLSRecordTypeInvalid

	EvtMQTTInvalidMsgType
	EvtMQTTRemainingLenInval

	EvtSomeIPHdrTooSmall
	EvtTFTPHdrTooSmall
	EvtSTUNHdrTooSmall
	EvtNTPHdrTooSmall
	EvtSNMPHdrTooSmall
	EvtSNMPVersionUnsupported

	EvtGREHdrTooSmall
	EvtVRRPHdrTooSmall
	EvtIPSecAHHdrTooSmall
	EvtIPSecAHICVLenInval

	EvtDoIPHdrlenTooSmall
	EvtDoIPVersionMismatch
	EvtDoIPUnsupportedMsgType
	EvtDoIPVehAnnounceTooSmall
	EvtDoIPEntityStatusResponseTooSmall
	EvtDoIPRouteActivationReqTooSmall
	EvtUdsUnknownServiceId

	EvtTcpStateIllegalTransition

	EvtKnownExploitWin32Blaster

	EvtUnknownError
	EvtParseOk
)

var descriptionNames = map[Description]string{
	EvtUnknown: "Evt_Unknown",

	EvtEthSrcMacMatched:    "Evt_Eth_Src_Mac_Matched",
	EvtEthDstMacMatched:    "Evt_Eth_Dst_Mac_Matched",
	EvtEthEthertypeMatched: "Evt_Eth_Ethertype_Matched",
	EvtEthEthertypeUnknown: "Evt_Eth_Ethertype_Unknown",
	EvtEthHdrlenTooSmall:   "Evt_Eth_Hdrlen_Too_Small",

	EvtMACsecHdrLenTooSmall: "Evt_MACsec_Hdr_Len_Too_Small",
	EvtMACsecTCISCSCBSet:    "Evt_MACsec_TCI_SC_SCB_Set",
	EvtMACsecTCIESSCSet:     "Evt_MACsec_TCI_ES_SC_Set",

	EvtARPHdrlenTooSmall:       "Evt_ARP_Hdrlen_Too_Small",
	EvtARPHWAddrLenInval:       "Evt_ARP_HW_Addr_Len_Inval",
	EvtARPProtocolAddrLenInval: "Evt_ARP_Protocol_Addr_Len_Inval",
	EvtARPInvalOperation:       "Evt_ARP_Inval_Operation",
	EvtARPFloodMaybeInProgress: "Evt_ARP_Flood_Maybe_In_Progress",

	EvtVLANHdrlenTooShort: "Evt_VLAN_Hdrlen_Too_Short",
	EvtVLANInvalVID:       "Evt_VLAN_Inval_VID",

	EvtIPv4HdrlenTooSmall:            "Evt_IPv4_Hdrlen_Too_Small",
	EvtIPv4HdrlenTooBig:              "Evt_IPv4_Hdrlen_Too_Big",
	EvtIPv4HdrlenInval:               "Evt_IPv4_Hdrlen_Inval",
	EvtIPv4VersionInvalid:            "Evt_IPv4_Version_Invalid",
	EvtIPv4FlagsInvalid:              "Evt_IPv4_Flags_Invalid",
	EvtIPv4HdrChksumInvalid:          "Evt_IPv4_Hdr_Chksum_Invalid",
	EvtIPv4ProtocolUnsupported:       "Evt_IPv4_Protocol_Unsupported",
	EvtIPv4UnknownOpt:                "Evt_IPv4_Unknown_Opt",
	EvtIPv4InvalSrcAddr:              "Evt_IPv4_Inval_Src_Addr",
	EvtIPv4TotalLenSmallerThanHdrLen: "Evt_IPv4_Total_Len_Smaller_Than_Hdr_Len",
	EvtIPv4TTLZero:                   "Evt_IPv4_TTL_Zero",

	EvtIPv6HdrlenTooSmall:    "Evt_IPv6_Hdrlen_Too_Small",
	EvtIPv6VersionInvalid:    "Evt_IPv6_Version_Invalid",
	EvtIPv6PayloadLenInvalid: "Evt_IPv6_Payload_Len_Invalid",

	EvtIcmp6TypeUnsupported: "Evt_Icmp6_Icmp6_Type_Unsupported",

	EvtPPPoEHdrTooSmall:     "Evt_PPPoE_Hdr_Too_Small",
	EvtPPPoECodeUnsupported: "Evt_PPPoE_Code_Unsupported",

	EvtEAPHdrTooSmall:     "Evt_EAP_Hdr_Too_Small",
	EvtEAPTypeUnsupported: "Evt_EAP_Type_Unsupported",

	EvtTcpHdrlenTooShort:      "Evt_Tcp_Hdrlen_Too_Short",
	EvtTcpFlagsAllSet:         "Evt_Tcp_Flags_All_Set",
	EvtTcpFlagsNoneSet:        "Evt_Tcp_Flags_None_Set",
	EvtTcpFlagsSynFinSet:      "Evt_Tcp_Flags_SYN_FIN_Set",
	EvtTcpInvalidOption:       "Evt_Tcp_Invalid_Option",
	EvtTcpOptTsInvalLen:       "Evt_Tcp_Opt_Ts_Inval_Len",
	EvtTcpOptWinScaleInvalLen: "Evt_Tcp_Opt_Win_Scale_Inval_Len",
	EvtTcpPortZero:            "Evt_Tcp_Port_Zero",

	EvtUdpSrcPortInvalid: "Evt_Udp_Src_Port_Invalid",
	EvtUdpDstPortInvalid: "Evt_Udp_Dst_Port_Invalid",
	EvtUdpChksumInvalid:  "Evt_Udp_Chksum_Invalid",
	EvtUdpLenTooShort:    "Evt_Udp_Len_Too_Short",

	EvtIcmpHdrLenTooShort:                "Evt_Icmp_Hdr_Len_Too_Short",
	EvtIcmpEchoReqHdrLenTooShort:         "Evt_Icmp_Echo_Req_Hdr_Len_Too_Short",
	EvtIcmpEchoReplyHdrLenTooShort:       "Evt_Icmp_Echo_Reply_Hdr_Len_Too_Short",
	EvtIcmpTsMsgHdrLenTooShort:           "Evt_Icmp_Ts_Msg_Hdr_Len_Too_Short",
	EvtIcmpInfoMsgHdrLenTooShort:         "Evt_Icmp_Info_Msg_Hdr_Len_Too_Short",
	EvtIcmpCovertChannelMaybeActive:      "Evt_Icmp_Covert_Channel_Maybe_Active",
	EvtIcmpInvalidType:                   "Evt_Icmp_Invalid_Type",
	EvtIcmpDestUnreachableInvalidCode:    "Evt_Icmp_Dest_Unreachable_Invalid_Code",
	EvtIcmpTimeExceededInvalidCode:       "Evt_Icmp_Time_Exceeded_Invalid_Code",
	EvtIcmpNonZeroEchoReqPayloadLen:      "Evt_Icmp_Non_Zero_Echo_Req_Payload_Len",
	EvtIcmpFragmentedAnomaly:             "Evt_Icmp_Fragmented_Anomaly",
	EvtIcmpMulticastBroadcastDestAnomaly: "Evt_Icmp_Multicast_Broadcast_Dest_Anomaly",

	EvtIgmpTypeInvalid: "Evt_Igmp_Type_Invalid",

	EvtDHCPMAGICInvalid:               "Evt_DHCP_MAGIC_Invalid",
	EvtDHCPOptClientIdLenInval:        "Evt_DHCP_Opt_Client_Id_Len_Inval",
	EvtDHCPOptSubnetMaskLenInval:      "Evt_DHCP_Opt_SubnetMask_Len_Inval",
	EvtDHCPOptRenewalTimeLenInval:     "Evt_DHCP_Opt_Renewal_Time_Len_Inval",
	EvtDHCPOptRebindingTimeLenInval:   "Evt_DHCP_Opt_Rebinding_Time_Len_Inval",
	EvtDHCPOptIpaddrLeaseTimeLenInval: "Evt_DHCP_Opt_Ipaddr_Lease_Time_Len_Inval",
	EvtDHCPOptServerIdLenInval:        "Evt_DHCP_Opt_Server_Id_Len_Inval",
	EvtDHCPHdrLenTooShort:             "Evt_DHCP_Hdr_Len_Too_Short",

	EvtTLSVersionUnsupported: "Evt_TLS_Version_Unsupported",
	EvtTLSRecordTypeInvalid:  "Evt_TLS_Record_Type_Invalid",

	EvtMQTTInvalidMsgType:   "Evt_MQTT_Invalid_Msg_Type",
	EvtMQTTRemainingLenInval: "Evt_MQTT_Remaining_Len_Inval",

	EvtSomeIPHdrTooSmall:      "Evt_SomeIP_Hdr_Too_Small",
	EvtTFTPHdrTooSmall:        "Evt_TFTP_Hdr_Too_Small",
	EvtSTUNHdrTooSmall:        "Evt_STUN_Hdr_Too_Small",
	EvtNTPHdrTooSmall:         "Evt_NTP_Hdr_Too_Small",
	EvtSNMPHdrTooSmall:        "Evt_SNMP_Hdr_Too_Small",
	EvtSNMPVersionUnsupported: "Evt_SNMP_Version_Unsupported",

	EvtGREHdrTooSmall:     "Evt_GRE_Hdr_Too_Small",
	EvtVRRPHdrTooSmall:    "Evt_VRRP_Hdr_Too_Small",
	EvtIPSecAHHdrTooSmall: "Evt_IPSec_AH_Hdr_Too_Small",
	EvtIPSecAHICVLenInval: "Evt_IPSec_AH_ICV_Len_Inval",

	EvtDoIPHdrlenTooSmall:               "Evt_DoIP_Hdrlen_Too_Small",
	EvtDoIPVersionMismatch:              "Evt_DoIP_Version_Mismatch",
	EvtDoIPUnsupportedMsgType:           "Evt_DoIP_Unsupported_Msg_Type",
	EvtDoIPVehAnnounceTooSmall:          "Evt_DoIP_Veh_Announce_Too_Small",
	EvtDoIPEntityStatusResponseTooSmall: "Evt_DoIP_Entity_Status_Response_Too_Small",
	EvtDoIPRouteActivationReqTooSmall:   "Evt_DoIP_Route_Activation_Req_Too_Small",
	EvtUdsUnknownServiceId:              "Evt_Uds_Unknown_Service_Id",

	EvtTcpStateIllegalTransition: "Evt_Tcp_State_Illegal_Transition",

	EvtKnownExploitWin32Blaster: "Evt_Known_Exploit_Win32_Blaster",

	EvtUnknownError: "Evt_Unknown_Error",
	EvtParseOk:      "Evt_Parse_Ok",
}

// String renders the canonical spec/original-source name for d, or
// "Evt_Unrecognized" for a value with no name.
func (d Description) String() string {
	if name, ok := descriptionNames[d]; ok {
		return name
	}
	return "Evt_Unrecognized"
}

// Ok reports whether d represents successful parsing with nothing to
// report.
func (d Description) Ok() bool {
	return d == EvtParseOk
}

// Type classifies an event by disposition, mirroring event_type in
// original_source/src/events/event_def.h.
type Type uint8

const (
	TypeAllow Type = iota
	TypeDeny
	TypeAlert
)

func (t Type) String() string {
	switch t {
	case TypeAllow:
		return "allow"
	case TypeDeny:
		return "deny"
	case TypeAlert:
		return "alert"
	default:
		return "unknown"
	}
}
