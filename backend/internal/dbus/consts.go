package dbus

// Standard D-Bus method names
const (
	DBUS_INTERFACE = "org.freedesktop.DBus"
	DBUS_PATH      = "/org/freedesktop/DBus"

	BUS_LIST_NAMES         = DBUS_INTERFACE + ".ListNames"
	BUS_GET_NAME_OWNER     = DBUS_INTERFACE + ".GetNameOwner"
	BUS_GET_CONNECTION_PID = DBUS_INTERFACE + ".GetConnectionUnixProcessID"
	DBUS_PROP_IFACE        = DBUS_INTERFACE + ".Properties"

	PROP_GET     = DBUS_PROP_IFACE + ".Get"
	PROP_SET     = DBUS_PROP_IFACE + ".Set"
	PROP_GET_ALL = DBUS_PROP_IFACE + ".GetAll"

	SIGNAL_PROPERTIES_CHANGED = DBUS_PROP_IFACE + ".PropertiesChanged"
	SIGNAL_NAME_OWNER_CHANGED = DBUS_INTERFACE + ".NameOwnerChanged"

	ERR_NAME_HAS_NO_OWNER = DBUS_INTERFACE + ".Error.NameHasNoOwner"
	ERR_SERVICE_UNKNOWN   = DBUS_INTERFACE + ".Error.ServiceUnknown"
	ERR_UNKNOWN_METHOD    = DBUS_INTERFACE + ".Error.UnknownMethod"
	ERR_UNKNOWN_INTERFACE = DBUS_INTERFACE + ".Error.UnknownInterface"
	ERR_UNKNOWN_PROPERTY  = DBUS_INTERFACE + ".Error.UnknownProperty"
	ERR_NO_REPLY          = DBUS_INTERFACE + ".Error.NoReply"
)
