package native

// Names of the native calls, used for error reporting, tracing and the
// mock driver's call counters.
const (
	CallContextNew        = "gp_context_new"
	CallContextUnref      = "gp_context_unref"
	CallAutodetect        = "gp_camera_autodetect"
	CallLookupModel       = "gp_abilities_list_lookup_model"
	CallLookupPath        = "gp_port_info_list_lookup_path"
	CallCameraNew         = "gp_camera_new"
	CallSetAbilities      = "gp_camera_set_abilities"
	CallSetPortInfo       = "gp_camera_set_port_info"
	CallCapture           = "gp_camera_capture"
	CallCapturePreview    = "gp_camera_capture_preview"
	CallTriggerCapture    = "gp_camera_trigger_capture"
	CallWaitForEvent      = "gp_camera_wait_for_event"
	CallGetConfig         = "gp_camera_get_config"
	CallSetConfig         = "gp_camera_set_config"
	CallFileGet           = "gp_camera_file_get"
	CallFileDelete        = "gp_camera_file_delete"
	CallFolderListFiles   = "gp_camera_folder_list_files"
	CallFolderListFolders = "gp_camera_folder_list_folders"
	CallCameraExit        = "gp_camera_exit"
	CallCameraUnref       = "gp_camera_unref"
	CallWidgetSetValue    = "gp_widget_set_value"
	CallWidgetGetValue    = "gp_widget_get_value"
	CallWidgetGetRange    = "gp_widget_get_range"
	CallWidgetGetChoice   = "gp_widget_get_choice"
	CallWidgetFree        = "gp_widget_free"
)
